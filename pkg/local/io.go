package local

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nemanja-m/mrsched/pkg/core"
)

const (
	DefaultBufferSize = 1024 * 1024 // 1MB
)

type Line struct {
	Filename string
	Number   int
	Text     string
}

// Key is the record key handed to map functions.
func (l Line) Key() string {
	return fmt.Sprintf("%s:%d", l.Filename, l.Number)
}

func ReadLines(filePath string, bufferSize ...int) ([]Line, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if len(bufferSize) == 0 {
		bufferSize = []int{DefaultBufferSize}
	}
	buffer := make([]byte, bufferSize[0])

	scanner := bufio.NewScanner(file)
	scanner.Buffer(buffer, bufferSize[0])

	var lines []Line
	for i := 1; scanner.Scan(); i++ {
		lines = append(lines, Line{
			Filename: filePath,
			Number:   i,
			Text:     scanner.Text(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// IntermediateFile names the file map task m of a job writes for reducer r.
func IntermediateFile(dir string, jobID, m, r int) string {
	return filepath.Join(dir, fmt.Sprintf("mr-%d-%d-%d", jobID, m, r))
}

// OutputFile names the final output of reducer r.
func OutputFile(dir string, jobID, r int) string {
	return filepath.Join(dir, fmt.Sprintf("mr-out-%d-%d", jobID, r))
}

// WriteFileAtomic writes through a temporary file in the target directory and
// renames it into place, so readers never observe a partial file and a
// duplicate execution replaces rather than corrupts earlier output.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmp.Name(), err)
	}
	return nil
}

// WriteKeyValues stores intermediate pairs as JSON lines.
func WriteKeyValues(path string, kvs []core.KeyValue) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for _, kv := range kvs {
			if err := enc.Encode(kv); err != nil {
				return err
			}
		}
		return nil
	})
}

func ReadKeyValues(path string) ([]core.KeyValue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var kvs []core.KeyValue
	dec := json.NewDecoder(bufio.NewReader(file))
	for {
		var kv core.KeyValue
		if err := dec.Decode(&kv); err != nil {
			if errors.Is(err, io.EOF) {
				return kvs, nil
			}
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		kvs = append(kvs, kv)
	}
}

// WriteResults stores reduce output as "key\tvalue" lines.
func WriteResults(path string, kvs []core.KeyValue) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		for _, kv := range kvs {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
