// Package cli implements mrctl: job manifests, submission and polling.
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/shared/rpc"
)

// Manifest describes a job to submit.
//
//	app: wordcount
//	inputs:
//	  - data/**/*.txt
//	reducers: 4
//	output: out/wordcount
//	args: ""
type Manifest struct {
	App      string   `yaml:"app"`
	Inputs   []string `yaml:"inputs"`
	Reducers int      `yaml:"reducers"`
	Output   string   `yaml:"output"`
	Args     string   `yaml:"args,omitempty"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	var errs []error
	if m.App == "" {
		errs = append(errs, errors.New("app is required"))
	}
	if len(m.Inputs) == 0 {
		errs = append(errs, errors.New("at least one input pattern is required"))
	}
	if m.Reducers < 1 {
		errs = append(errs, fmt.Errorf("reducers must be at least 1, got %d", m.Reducers))
	}
	if m.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	return errors.Join(errs...)
}

// SubmitRequest expands the input patterns and resolves every path to an
// absolute one, since workers may run from a different directory.
func (m *Manifest) SubmitRequest() (*rpc.SubmitJobRequest, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	files, err := core.FindLocalFiles(m.Inputs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched %v", m.Inputs)
	}
	if files, err = core.AbsPaths(files); err != nil {
		return nil, err
	}

	output, err := filepath.Abs(m.Output)
	if err != nil {
		return nil, err
	}

	var args []byte
	if m.Args != "" {
		args = []byte(m.Args)
	}

	return &rpc.SubmitJobRequest{
		App:       m.App,
		Files:     files,
		NReduce:   m.Reducers,
		OutputDir: output,
		Args:      args,
	}, nil
}
