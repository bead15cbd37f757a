package testing

import (
	"os"
	"path"
	"runtime"
)

func init() {
	// tests load fixtures from testdata/ relative to the module root, so cd there
	// before any test runs. import for side effect only:
	//
	//   import (
	//     _ "liyu1981.xyz/envctl-daemon/pkg/testing"
	//   )

	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}

	// keep test logs out of the working tree
	if _, found := os.LookupEnv("ENVCTL_LOG_DIR"); !found {
		_ = os.Setenv("ENVCTL_LOG_DIR", path.Join(os.TempDir(), "envctl-test-logs"))
	}
}
