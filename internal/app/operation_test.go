package app

import "testing"

func TestNewImportOperation(t *testing.T) {
	op := NewImportOperation("Import", "/home/user/photos.zip")

	if op.Operation != "Import" || op.Parameters != "/home/user/photos.zip" {
		t.Errorf("NewImportOperation() = %+v", op)
	}
	if op.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
	}
	if op.Persisted() {
		t.Error("new operation reports persisted")
	}
}

func TestImportOperation_Persisted(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want bool
	}{
		{name: "not persisted when ID is 0", id: 0, want: false},
		{name: "persisted when ID is positive", id: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &ImportOperation{ID: tt.id}
			if got := op.Persisted(); got != tt.want {
				t.Errorf("Persisted() = %v, want %v", got, tt.want)
			}
		})
	}
}
