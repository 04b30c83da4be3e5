package local

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/nemanja-m/mrsched/pkg/core"
)

type MapTask struct {
	JobID     int
	Index     int
	InputFile string
	OutputDir string
	NReduce   int
	Args      []byte
}

type ReduceTask struct {
	JobID     int
	Index     int
	OutputDir string
	NMap      int
	Args      []byte
}

// Engine runs single map and reduce tasks against the local filesystem.
type Engine struct {
	mapFunc    core.MapFunc
	reduceFunc core.ReduceFunc
}

func NewEngine(mapFunc core.MapFunc, reduceFunc core.ReduceFunc) *Engine {
	return &Engine{mapFunc: mapFunc, reduceFunc: reduceFunc}
}

// RunMap maps every line of the input file and writes one intermediate file
// per reducer, including empty ones.
func (e *Engine) RunMap(ctx context.Context, task MapTask) error {
	if task.NReduce <= 0 {
		return fmt.Errorf("map task %d: n_reduce must be positive", task.Index)
	}

	lines, err := ReadLines(task.InputFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", task.InputFile, err)
	}

	partitioned := make([][]core.KeyValue, task.NReduce)
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, kv := range e.mapFunc(line.Key(), line.Text, task.Args) {
			partition := core.Partition(kv.Key, task.NReduce)
			partitioned[partition] = append(partitioned[partition], kv)
		}
	}

	for r, records := range partitioned {
		path := IntermediateFile(task.OutputDir, task.JobID, task.Index, r)
		if err := WriteKeyValues(path, records); err != nil {
			return fmt.Errorf("failed to write intermediate file %s: %w", path, err)
		}
	}
	return nil
}

// RunReduce gathers the reducer's partition from every map task, groups it by
// key and writes the sorted results.
func (e *Engine) RunReduce(ctx context.Context, task ReduceTask) error {
	var records []core.KeyValue
	for m := range task.NMap {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := IntermediateFile(task.OutputDir, task.JobID, m, task.Index)
		kvs, err := ReadKeyValues(path)
		if err != nil {
			return fmt.Errorf("failed to read intermediate file %s: %w", path, err)
		}
		records = append(records, kvs...)
	}

	slices.SortStableFunc(records, func(left, right core.KeyValue) int {
		return cmp.Compare(left.Key, right.Key)
	})

	results := e.reducePartition(records, task.Args)

	path := OutputFile(task.OutputDir, task.JobID, task.Index)
	if err := WriteResults(path, results); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}

func (e *Engine) reducePartition(sortedPartition []core.KeyValue, args []byte) []core.KeyValue {
	var results []core.KeyValue

	i := 0
	for i < len(sortedPartition) {
		key := sortedPartition[i].Key
		values := []string{}

		for i < len(sortedPartition) && sortedPartition[i].Key == key {
			values = append(values, sortedPartition[i].Value)
			i++
		}

		results = append(results, e.reduceFunc(key, values, args))
	}

	return results
}
