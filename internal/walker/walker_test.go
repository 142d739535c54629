package walker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/main.py", false},
		{"venv/lib/foo.py", true},
		{"myvenv/lib/foo.py", true},
		{"src/site-packages/foo.py", true},
		{"src/__pycache__/foo.pyc", true},
		{"assets/static/app.css", true},
		{".github/workflows/ci.yml", true},
		{"src/python3.11/foo.py", true},
		{"src/pip/foo.py", true},
		{"src/requirements.txt", false},
		{"docs/python-guide.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, IsExcluded(tt.path))
		})
	}
}
