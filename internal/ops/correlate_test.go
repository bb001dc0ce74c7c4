package ops

import (
	"strings"
	"testing"
	"time"

	"github.com/calebsh/offcut/internal/errors"
)

const authFailure = `tests/test_auth.py::test_login FAILED
E   AssertionError: expected 200, got 401
=== 1 failed in 1.43s ===
`

func TestCorrelateFindsRelatedFailure(t *testing.T) {
	env, now := testEnv(t)
	older := capture(t, env, "pytest", 1, authFailure)
	*now = now.Add(time.Minute)
	capture(t, env, "pytest", 1, "tests/test_db.py::test_conn FAILED\nE   TimeoutError: db\n=== 1 failed ===\n")
	*now = now.Add(time.Minute)
	subject := capture(t, env, "pytest", 1, authFailure)

	out, err := Correlate(env, CorrelateInput{Selector: subject})
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if len(out.Matches) == 0 {
		t.Fatal("no matches for an identical failure")
	}
	if out.Matches[0].ID != older {
		t.Errorf("top match = %s, want %s", out.Matches[0].ID, older)
	}
	if out.Matches[0].Score < 0.9 {
		t.Errorf("identical failure scored %v", out.Matches[0].Score)
	}
	if len(out.Matches[0].Reasons) == 0 {
		t.Error("match carries no explanation")
	}
	if out.Note == "" {
		t.Error("output does not state the heuristic nature of the signal")
	}
}

func TestCorrelateRespectsCommandGroup(t *testing.T) {
	env, now := testEnv(t)
	capture(t, env, "npm", 1, authFailure)
	*now = now.Add(time.Minute)
	subject := capture(t, env, "pytest", 1, authFailure)

	out, err := Correlate(env, CorrelateInput{Selector: subject})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Matches) != 0 {
		t.Errorf("matched across command groups: %+v", out.Matches)
	}
}

func TestCorrelateRejectsSuccess(t *testing.T) {
	env, _ := testEnv(t)
	id := capture(t, env, "pytest", 0, "all passed")
	if _, err := Correlate(env, CorrelateInput{Selector: id}); !errors.Is(err, errors.CodeInvalidRequest) {
		t.Errorf("err = %v, want invalid request", err)
	}
}

func TestCorrelateSkipsEvictedCandidates(t *testing.T) {
	env, now := testEnv(t)
	gone := capture(t, env, "pytest", 1, authFailure)
	*now = now.Add(time.Minute)
	subject := capture(t, env, "pytest", 1, authFailure)
	entry, _ := env.Log.Find(gone)
	env.Store.Remove(entry.CurrentPath)

	out, err := Correlate(env, CorrelateInput{Selector: subject})
	if err != nil {
		t.Fatalf("evicted candidate broke correlation: %v", err)
	}
	if len(out.Matches) != 0 {
		t.Errorf("matches = %+v, want none", out.Matches)
	}
}

func TestClusterFailures(t *testing.T) {
	env, now := testEnv(t)
	// Two failures share a tail; digits differ but normalize away.
	capture(t, env, "pytest", 1, "E   AssertionError: boom\n=== 1 failed in 1.43s ===\n")
	*now = now.Add(time.Minute)
	capture(t, env, "pytest", 1, "E   AssertionError: boom\n=== 1 failed in 2.91s ===\n")
	*now = now.Add(time.Minute)
	capture(t, env, "go", 1, "FAIL\tpkg/thing\t0.3s\npanic: unrelated\n")

	out, err := ClusterFailures(env, ClusterInput{})
	if err != nil {
		t.Fatalf("ClusterFailures: %v", err)
	}
	if len(out.Clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(out.Clusters))
	}
	if len(out.Clusters[0].IDs) != 2 {
		t.Errorf("cluster members = %v", out.Clusters[0].IDs)
	}
}

func TestClusterSingletonsExcluded(t *testing.T) {
	env, _ := testEnv(t)
	capture(t, env, "pytest", 1, "a unique failure tail\n")
	out, err := ClusterFailures(env, ClusterInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Clusters) != 0 {
		t.Errorf("singleton formed a cluster: %+v", out.Clusters)
	}
}

func TestCorrelateCandidateCount(t *testing.T) {
	env, now := testEnv(t)
	for i := 0; i < 3; i++ {
		capture(t, env, "pytest", 1, "E   ValueError: batch "+strings.Repeat("x", i)+"\n")
		*now = now.Add(time.Second)
	}
	subject := capture(t, env, "pytest", 1, authFailure)
	out, err := Correlate(env, CorrelateInput{Selector: subject})
	if err != nil {
		t.Fatal(err)
	}
	if out.Candidates != 3 {
		t.Errorf("candidates scanned = %d, want 3", out.Candidates)
	}
}
