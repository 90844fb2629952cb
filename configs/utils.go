package configs

import (
	"fmt"
	"log"
	"time"
)

// DPrintf logs a debug-level line when ShowDebugInfo is set.
func DPrintf(format string, a ...interface{}) {
	if ShowDebugInfo {
		emit(format, a...)
	}
}

// TPrintf logs a trace-level line when ShowTestInfo is set.
func TPrintf(format string, a ...interface{}) {
	if ShowTestInfo {
		emit(format, a...)
	}
}

// Warn logs a warning when cond is false and ShowWarnings is set. It
// returns cond unchanged so callers can inline it: `configs.Warn(ok, "...")`.
func Warn(cond bool, msg string) bool {
	if ShowWarnings && !cond {
		emit("[WARNING] %s", msg)
	}
	return cond
}

func emit(format string, a ...interface{}) {
	line := time.Now().Format("15:04:05.000") + " <-> " + fmt.Sprintf(format, a...)
	if LogToFile {
		log.Println(line)
	} else {
		fmt.Println(line)
	}
}

// CheckError panics on a non-nil error. Reserved for configuration and bind
// failures that spec §7 classifies as fatal at startup.
func CheckError(err error) {
	if err != nil {
		panic(err.Error())
	}
}

// Assert panics with msg if cond is false. Used at the handful of points
// where an invariant from spec §3 must hold or the implementation has a bug.
func Assert(cond bool, msg string) {
	if !cond {
		panic("[ASSERT] " + msg)
	}
}
