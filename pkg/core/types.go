package core

// MapFunc turns one input record into intermediate pairs. The key is the
// record position ("file:line") and args are the job's opaque arguments.
type MapFunc func(key, value string, args []byte) []KeyValue

// ReduceFunc folds every intermediate value of one key into an output pair.
type ReduceFunc func(key string, values []string, args []byte) KeyValue

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
