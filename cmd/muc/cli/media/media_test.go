package media

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []uint64
		wantErr bool
	}{
		{name: "separate args", args: []string{"4", "8"}, want: []uint64{4, 8}},
		{name: "comma list", args: []string{"4,8, 15"}, want: []uint64{4, 8, 15}},
		{name: "zero", args: []string{"0"}, wantErr: true},
		{name: "negative", args: []string{"-3"}, wantErr: true},
		{name: "word", args: []string{"cat"}, wantErr: true},
		{name: "empty", args: []string{","}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIDs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintReport(t *testing.T) {
	ui.SetPlain(true)
	defer ui.SetPlain(false)

	var out bytes.Buffer
	printReport(&out, &cleanup.Report{
		Deleted: 1,
		Refused: 1,
		Items: []cleanup.Outcome{
			{AttachmentID: 7, Action: "delete", Outcome: "done", Files: 3},
			{AttachmentID: 9, Action: "delete", Outcome: "refused", Reason: "post_content", Error: "attachment is in use"},
		},
	})

	assert.Contains(t, out.String(), "post_content: attachment is in use")
	assert.Contains(t, out.String(), "deleted 1, trashed 0, restored 0, refused 1, failed 0")
}
