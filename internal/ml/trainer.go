package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"augur/internal/domain/prediction"
	"augur/internal/learner"
	"augur/pkg/errors"
	"augur/pkg/logger"
)

// CommandTrainer runs the external training pipeline. The command
// receives the dataset path as its argument and prints a JSON result
// on stdout. Training is the one place we leave Go: the pipeline owns
// feature engineering and model export.
type CommandTrainer struct {
	command string
	workDir string
	log     *logger.Logger
}

var _ learner.Trainer = (*CommandTrainer)(nil)

// NewCommandTrainer creates a trainer invoking command. workDir holds
// dataset files and trained artifacts.
func NewCommandTrainer(command, workDir string) *CommandTrainer {
	return &CommandTrainer{
		command: command,
		workDir: workDir,
		log:     logger.Get().With("component", "command_trainer"),
	}
}

type trainOutput struct {
	Version   string  `json:"version"`
	Accuracy  float64 `json:"accuracy"`
	ModelPath string  `json:"model_path"`
}

// Train writes the dataset to disk, runs the pipeline and parses its
// result. Context cancellation kills the pipeline and surfaces
// ErrTrainingCancelled.
func (t *CommandTrainer) Train(ctx context.Context, symbol string, samples []prediction.TrainingSample) (*learner.TrainResult, error) {
	if t.command == "" {
		return nil, errors.Wrap(errors.ErrInvalidConfiguration, "no training command configured")
	}

	dataset, err := t.writeDataset(symbol, samples)
	if err != nil {
		return nil, err
	}
	defer os.Remove(dataset)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.command, "--symbol", symbol, "--dataset", dataset)
	cmd.Dir = t.workDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.log.Infow("running training pipeline", "symbol", symbol, "samples", len(samples))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrTrainingCancelled, "training pipeline killed")
		}
		return nil, errors.Wrapf(err, "training pipeline failed: %s", stderr.String())
	}

	var out trainOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, errors.Wrap(err, "failed to parse training result")
	}
	if out.Version == "" || out.ModelPath == "" {
		return nil, errors.New("training result missing version or model path")
	}

	return &learner.TrainResult{
		Version:   out.Version,
		Accuracy:  out.Accuracy,
		ModelPath: out.ModelPath,
	}, nil
}

func (t *CommandTrainer) writeDataset(symbol string, samples []prediction.TrainingSample) (string, error) {
	f, err := os.CreateTemp(t.workDir, "dataset-"+symbol+"-*.json")
	if err != nil {
		return "", errors.Wrap(err, "failed to create dataset file")
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(samples); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "failed to write dataset")
	}
	return filepath.Abs(f.Name())
}
