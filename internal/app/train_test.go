package app

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/myo_landmarks/internal/config"
	"github.com/relabs-tech/myo_landmarks/internal/dataset"
	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
	"github.com/relabs-tech/myo_landmarks/internal/model"
	"github.com/relabs-tech/myo_landmarks/internal/session"
)

func linearRecords(n int, pose string) []session.Record {
	out := make([]session.Record, n)
	for i := range out {
		var e [emg.Channels]int32
		for c := range e {
			e[c] = int32((i*(c+3) + c*7) % 97)
		}
		var f landmarks.Frame
		for j := range f {
			f[j] = float64(e[j%emg.Channels])/100 + float64(j)/64
		}
		out[i] = session.Record{ID: strconv.Itoa(i), Time: float64(i) / 50, Pose: pose, EMG: e, Landmarks: f}
	}
	return out
}

func trainingConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.TrainDataDir = filepath.Join(dir, "data")
	cfg.ModelPath = filepath.Join(dir, "model.json")
	cfg.ScalerPath = filepath.Join(dir, "scaler.json")
	require.NoError(t, os.MkdirAll(cfg.TrainDataDir, 0o755))
	return cfg
}

func TestRunTraining(t *testing.T) {
	cfg := trainingConfig(t)
	require.NoError(t, dataset.WriteRecords(filepath.Join(cfg.TrainDataDir, "a.csv"), linearRecords(120, "fist")))
	require.NoError(t, dataset.WriteRecords(filepath.Join(cfg.TrainDataDir, "b.csv"), linearRecords(80, "open")))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.TrainDataDir, "notes.txt"), []byte("skip me"), 0o644))

	res, err := RunTraining(cfg)
	require.NoError(t, err)
	assert.Equal(t, 200, res.TrainRows+res.TestRows)
	assert.Equal(t, 40, res.TestRows)
	assert.Less(t, res.TestMSE, 1e-3)

	net, err := model.LoadNetwork(cfg.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, emg.Channels, net.InputSize())
	assert.Equal(t, landmarks.Values, net.OutputSize())

	scaler, err := model.LoadScaler(cfg.ScalerPath)
	require.NoError(t, err)
	assert.Equal(t, emg.ColumnNames(), scaler.Columns)
}

func TestRunTrainingWithoutData(t *testing.T) {
	cfg := trainingConfig(t)
	_, err := RunTraining(cfg)
	assert.ErrorIs(t, err, ErrNoTrainingData)
}
