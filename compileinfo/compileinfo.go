// Package compileinfo reports which commit a binary was built from, so that a
// panel file can be traced back to the code that produced it.
package compileinfo

import (
	"fmt"
	"io"
	"runtime/debug"
)

type CompileInfo struct {
	Package    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	if c.Package == "" {
		return "No build information is embedded in this binary."
	}

	commit := c.Commit
	if commit == "" {
		commit = "unknown"
	}

	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("This %s binary was built with %s at commit %s (%s).%s", c.Package, c.GoVersion, commit, c.CommitTime, mod)
}

// Get reads the VCS settings stamped into the binary by the go tool.
func Get() CompileInfo {
	out := CompileInfo{}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) CompileInfo {
	out := CompileInfo{
		GoVersion: bi.GoVersion,
		Package:   bi.Path,
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func Fprint(w io.Writer) {
	fmt.Fprintf(w, "%s\n", Get())
}
