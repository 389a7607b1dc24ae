package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Resolve bool
	Patch   bool
	Cache   bool
	Recover bool
	Batch   bool
	Load    bool
}

var d *debug

func init() {
	d = &debug{}
	d.Resolve = boolEnv("OXPATCH_DEBUG_RESOLVE")
	d.Patch = boolEnv("OXPATCH_DEBUG_PATCH")
	d.Cache = boolEnv("OXPATCH_DEBUG_CACHE")
	d.Recover = boolEnv("OXPATCH_DEBUG_RECOVER")
	d.Batch = boolEnv("OXPATCH_DEBUG_BATCH")
	d.Load = boolEnv("OXPATCH_DEBUG_LOAD")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Resolve() bool {
	return d.Resolve
}
func Patch() bool {
	return d.Patch
}
func Cache() bool {
	return d.Cache
}
func Recover() bool {
	return d.Recover
}
func Batch() bool {
	return d.Batch
}
func Load() bool {
	return d.Load
}

func LogAny(v any) {
	d, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", v)
		return
	}
	os.Stderr.Write(d)
}
