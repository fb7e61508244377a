package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
	"github.com/relabs-tech/myo_landmarks/internal/session"
)

func testFrame(offset float64) landmarks.Frame {
	var f landmarks.Frame
	for i := range f {
		f[i] = offset + float64(i)*0.25
	}
	return f
}

func poolCSV(t *testing.T, frames ...landmarks.Frame) string {
	t.Helper()
	var buf strings.Builder
	buf.WriteString("frame," + strings.Join(landmarks.Columns(), ",") + "\n")
	for n, f := range frames {
		buf.WriteString(strings.Repeat("x", n+1)) // extra column is ignored
		buf.WriteString(",")
		buf.WriteString(strings.ReplaceAll(landmarks.Format(f[:]), " ", ""))
		buf.WriteString("\n")
	}
	return buf.String()
}

func TestHandHeaderMatchesLandmarkColumns(t *testing.T) {
	h, err := csvutil.Header(Hand{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, landmarks.Columns(), h)
}

func TestRowHeader(t *testing.T) {
	want := append([]string{"id", "time", "pose_name"}, emg.ColumnNames()...)
	want = append(want, landmarks.Columns()...)
	assert.Equal(t, want, Header())
}

func TestHandFrameRoundTrip(t *testing.T) {
	f := testFrame(1)
	h := HandFrom(f)
	assert.Equal(t, f[3], h.ThumbCMC.X)
	assert.Equal(t, f[62], h.PinkyTip.Z)
	assert.Equal(t, f, h.Frame())
}

func TestReadPool(t *testing.T) {
	a, b := testFrame(0), testFrame(1)
	p, err := ReadPool(strings.NewReader(poolCSV(t, a, b)), 7)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	seen := map[landmarks.Frame]int{}
	for i := 0; i < 200; i++ {
		seen[p.Sample()]++
	}
	assert.Len(t, seen, 2, "sampling is with replacement over the whole pool")
	assert.Contains(t, seen, a)
	assert.Contains(t, seen, b)
}

func TestReadPoolErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty file", ""},
		{"header only", "frame," + strings.Join(landmarks.Columns(), ",") + "\n"},
		{"missing column", strings.Join(landmarks.Columns()[1:], ",") + "\n" + strings.Repeat("1,", 61) + "1\n"},
		{"bad number", strings.Join(landmarks.Columns(), ",") + "\n" + "abc" + strings.Repeat(",1", 62) + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPool(strings.NewReader(tt.in), 1)
			assert.ErrorIs(t, err, ErrDatasetLoad)
		})
	}
}

func TestLoadPoolMissingFile(t *testing.T) {
	_, err := LoadPool(filepath.Join(t.TempDir(), "nope.csv"), 1)
	assert.ErrorIs(t, err, ErrDatasetLoad)
}

func TestRecordsRoundTrip(t *testing.T) {
	records := []session.Record{
		{ID: "0", Time: 1700000000.125, Pose: "fist", EMG: [emg.Channels]int32{1, 2, 3, 4, 5, 6, 7, 8}, Landmarks: testFrame(0)},
		{ID: "1", Time: 1700000000.25, Pose: "open hand", EMG: [emg.Channels]int32{-1, 0, 300, 4, 5, 6, 7, 65535}, Landmarks: testFrame(2)},
	}
	path := filepath.Join(t.TempDir(), "out", "emg_landmarks.csv")
	require.NoError(t, WriteRecords(path, records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Header(), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,1700000000.125,fist,1,2,3,4,5,6,7,8,0,0.25,"), lines[1])

	got, err := ReadRecords(path)
	require.NoError(t, err)
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	assert.Empty(t, matches)
}

func TestDecodeRecordsEmpty(t *testing.T) {
	recs, err := DecodeRecords(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, recs)
}
