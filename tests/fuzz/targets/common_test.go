package targets

import (
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
)

func init() {
	// GC and compiler tracing would flood the fuzz output.
	logrus.SetLevel(logrus.ErrorLevel)

	// Cap fuzz worker parallelism unless the caller explicitly set GOMAXPROCS.
	if _, ok := os.LookupEnv("GOMAXPROCS"); !ok {
		max := runtime.NumCPU()
		if max > 4 {
			max = 4
		}
		if runtime.GOMAXPROCS(0) > max {
			runtime.GOMAXPROCS(max)
		}
	}
}

const corpusDir = "../../../testdata"
