package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/config"
	"github.com/relabs-tech/myo_landmarks/internal/dataset"
	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/model"
	"github.com/relabs-tech/myo_landmarks/internal/session"
)

// ErrNoTrainingData is returned when the data directory holds no CSV files.
var ErrNoTrainingData = errors.New("train: no CSV files found in the data folder")

// RunTraining fits the scaler and model on every collection file in
// cfg.TrainDataDir and saves both artifacts.
func RunTraining(cfg *config.Config) (*model.TrainResult, error) {
	if err := cfg.ValidateTraining(); err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(cfg.TrainDataDir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTrainingData, cfg.TrainDataDir)
	}
	sort.Strings(files)

	var records []session.Record
	for _, f := range files {
		recs, err := dataset.ReadRecords(f)
		if err != nil {
			return nil, err
		}
		klog.Infof("train: %s: %d rows", f, len(recs))
		records = append(records, recs...)
	}
	x, y := trainingMatrix(records)
	klog.Infof("train: %d rows, features %v", len(x), emg.ColumnNames())

	res, err := model.Train(x, y, model.TrainOptions{
		TestFraction:   cfg.TrainTestFraction,
		Ridge:          cfg.TrainRidge,
		Seed:           cfg.TrainSeed,
		FeatureColumns: emg.ColumnNames(),
	})
	if err != nil {
		return nil, err
	}
	klog.Infof("train: %d train rows, %d test rows, train MSE %.6f, test MSE %.6f",
		res.TrainRows, res.TestRows, res.TrainMSE, res.TestMSE)

	if err := res.Network.Save(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	if err := res.Scaler.Save(cfg.ScalerPath); err != nil {
		return nil, fmt.Errorf("save scaler: %w", err)
	}
	klog.Infof("train: model saved to %s, scaler saved to %s", cfg.ModelPath, cfg.ScalerPath)

	if cfg.TrainReportPath != "" && res.ColumnMSE != nil {
		if err := model.WriteReport(cfg.TrainReportPath, res); err != nil {
			klog.Warningf("train: %v", err)
		} else {
			klog.Infof("train: error report written to %s", cfg.TrainReportPath)
		}
	}
	return res, nil
}

// trainingMatrix splits records into s1..s8 features and landmark targets.
func trainingMatrix(records []session.Record) ([][]float64, [][]float64) {
	x := make([][]float64, len(records))
	y := make([][]float64, len(records))
	for i, r := range records {
		x[i] = emg.Sample{Values: r.EMG}.Features()
		y[i] = append([]float64(nil), r.Landmarks[:]...)
	}
	return x, y
}
