package errors

import "testing"

func TestErrorString(t *testing.T) {
	err := NewInvalidRequest("tag contains invalid characters")
	want := "INVALID_REQUEST: tag contains invalid characters"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	err := NewNotFound("pytest", "run offcut recent")
	if !Is(err, CodeNotFound) {
		t.Error("Is should match CodeNotFound")
	}
	if Is(err, CodeStorageFault) {
		t.Error("Is should not match CodeStorageFault")
	}
	if Is(nil, CodeNotFound) {
		t.Error("Is(nil) should be false")
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"not found", NewNotFound("x", ""), ExitUsage},
		{"invalid request", NewInvalidRequest("bad"), ExitUsage},
		{"path violation", NewPathViolation("../../etc/passwd"), ExitUsage},
		{"storage fault", NewStorageFault("append manifest", nil), ExitStorage},
		{"internal", NewInternal(nil), ExitStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEvictedDetails(t *testing.T) {
	err := NewEvicted("A1B2C3D4")
	if err.Details["evicted"] != true {
		t.Error("evicted detail should be set")
	}
	if err.Details["id"] != "A1B2C3D4" {
		t.Errorf("id detail = %v", err.Details["id"])
	}
}
