package ops

import (
	"sort"

	"github.com/calebsh/offcut/internal/artifact"
	"github.com/calebsh/offcut/internal/errors"
	"github.com/calebsh/offcut/internal/manifest"
)

// Correlation tuning. A heuristic signal, not a causality claim; outputs
// say so.
const (
	correlateMaxCandidates = 50
	correlateTopN          = 5
	correlateThreshold     = 0.3
)

// CorrelateInput selects the failing artifact to find relatives of.
type CorrelateInput struct {
	Selector string
}

// CorrelateMatch is one related failure with its score and why.
type CorrelateMatch struct {
	ID      string   `json:"id"`
	Cmd     string   `json:"cmd"`
	Age     string   `json:"age"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// CorrelateOutput is the scored match list.
type CorrelateOutput struct {
	ID         string           `json:"id"`
	Candidates int              `json:"candidates_scanned"`
	Matches    []CorrelateMatch `json:"matches"`
	Note       string           `json:"note"`
}

// Correlate fingerprints a failing artifact and scores it against up to 50
// recent failures of the same command group, returning the top 5 above the
// similarity threshold.
func Correlate(env *Env, in CorrelateInput) (*CorrelateOutput, error) {
	entry, err := findEntry(env, in.Selector)
	if err != nil {
		return nil, err
	}
	if entry.Exit() == 0 {
		return nil, errors.NewInvalidRequestf("%s succeeded (exit 0); correlation works on failures", entry.ID)
	}
	sig, err := signatureOf(env, entry)
	if err != nil {
		return nil, err
	}

	out := &CorrelateOutput{
		ID:   entry.ID,
		Note: "similarity is a best-effort signal from shared error tokens, test files, and output tails",
	}
	now := env.now()
	candidates, err := failingPeers(env, entry.CmdGroup, entry.ID)
	if err != nil {
		return nil, err
	}
	for _, cand := range candidates {
		candSig, err := signatureOf(env, cand)
		if err != nil {
			continue
		}
		out.Candidates++
		score := artifact.Similarity(sig, candSig)
		if score < correlateThreshold {
			continue
		}
		out.Matches = append(out.Matches, CorrelateMatch{
			ID:      cand.ID,
			Cmd:     cand.Cmd,
			Age:     artifact.FormatAge(cand.CreatedAt, now),
			Score:   score,
			Reasons: artifact.ExplainSimilarity(sig, candSig),
		})
	}
	sort.SliceStable(out.Matches, func(i, j int) bool { return out.Matches[i].Score > out.Matches[j].Score })
	if len(out.Matches) > correlateTopN {
		out.Matches = out.Matches[:correlateTopN]
	}
	return out, nil
}

// ClusterInput scopes the clustering pass.
type ClusterInput struct {
	Cmd string
	// AllSessions widens the scan beyond the current session.
	AllSessions bool
}

// Cluster is one group of failures sharing an output tail.
type Cluster struct {
	TailHash string   `json:"tail_hash"`
	IDs      []string `json:"ids"`
	Cmds     []string `json:"cmds"`
}

// ClusterOutput groups recent failures by identical normalized tails.
type ClusterOutput struct {
	Scanned  int       `json:"scanned"`
	Clusters []Cluster `json:"clusters"`
}

// ClusterFailures groups recent failing artifacts by exact tail-hash
// equality. Only groups with at least two members are reported.
func ClusterFailures(env *Env, in ClusterInput) (*ClusterOutput, error) {
	group := env.Cfg.Group(in.Cmd)
	creations, err := env.Log.Creations(correlateMaxCandidates, func(r manifest.Record) bool {
		if r.Exit() == 0 {
			return false
		}
		if !in.AllSessions && env.SessionID != "" && r.SessionID != env.SessionID {
			return false
		}
		if in.Cmd != "" && r.Cmd != in.Cmd && r.CmdGroup != group {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	entries, err := env.Log.Materialize(creations)
	if err != nil {
		return nil, err
	}

	out := &ClusterOutput{}
	byTail := make(map[string]*Cluster)
	var order []string
	for _, e := range entries {
		sig, err := signatureOf(env, e)
		if err != nil || sig.TailHash == "" {
			continue
		}
		out.Scanned++
		c := byTail[sig.TailHash]
		if c == nil {
			c = &Cluster{TailHash: sig.TailHash}
			byTail[sig.TailHash] = c
			order = append(order, sig.TailHash)
		}
		c.IDs = append(c.IDs, e.ID)
		c.Cmds = appendUnique(c.Cmds, e.Cmd)
	}
	for _, h := range order {
		if c := byTail[h]; len(c.IDs) >= 2 {
			out.Clusters = append(out.Clusters, *c)
		}
	}
	sort.SliceStable(out.Clusters, func(i, j int) bool {
		return len(out.Clusters[i].IDs) > len(out.Clusters[j].IDs)
	})
	return out, nil
}

// failingPeers returns up to correlateMaxCandidates recent failing entries
// of the same command group, excluding the subject itself.
func failingPeers(env *Env, group, excludeID string) ([]*manifest.Entry, error) {
	creations, err := env.Log.Creations(correlateMaxCandidates, func(r manifest.Record) bool {
		return r.Exit() != 0 && r.CmdGroup == group && r.ID != excludeID
	})
	if err != nil {
		return nil, err
	}
	return env.Log.Materialize(creations)
}

// signatureOf reads an entry's content and fingerprints it. Missing content
// is an eviction error for the subject; callers scanning candidates just
// skip it.
func signatureOf(env *Env, e *manifest.Entry) (artifact.Signature, error) {
	if !env.Store.Exists(e.CurrentPath) {
		return artifact.Signature{}, errors.NewEvicted(e.ID)
	}
	data, err := env.Store.Read(e.CurrentPath)
	if err != nil {
		return artifact.Signature{}, err
	}
	return artifact.ExtractSignature(string(data)), nil
}

func appendUnique(xs []string, s string) []string {
	for _, x := range xs {
		if x == s {
			return xs
		}
	}
	return append(xs, s)
}
