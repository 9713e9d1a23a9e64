package gitx

import "context"

// Stub pairs an argument prefix with a scripted Result. A call matches
// when its command line starts with Args.
type Stub struct {
	Args   []string
	Result Result
}

// FakeRunner implements Runner with scripted results for testing.
// Every call is recorded in Calls; unmatched calls succeed with empty output.
type FakeRunner struct {
	Stubs []Stub
	Calls []Result
}

// NewFakeRunner creates a new FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// StubResult registers a scripted result for commands whose line starts
// with the given prefix.
func (f *FakeRunner) StubResult(prefix []string, res Result) {
	f.Stubs = append(f.Stubs, Stub{Args: prefix, Result: res})
}

// Run returns the first matching stub, or a successful empty result.
func (f *FakeRunner) Run(ctx context.Context, dir, name string, args ...string) Result {
	line := append([]string{name}, args...)

	res := Result{Cmd: line, Dir: dir}
	for _, s := range f.Stubs {
		if matchPrefix(line, s.Args) {
			res.Stdout = s.Result.Stdout
			res.Stderr = s.Result.Stderr
			res.ReturnCode = s.Result.ReturnCode
			break
		}
	}

	f.Calls = append(f.Calls, res)
	return res
}

// CommandLines returns the recorded calls formatted as command lines.
func (f *FakeRunner) CommandLines() []string {
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, Format(c.Cmd[0], c.Cmd[1:]...))
	}
	return lines
}

func matchPrefix(line, prefix []string) bool {
	if len(prefix) > len(line) {
		return false
	}
	for i, p := range prefix {
		if line[i] != p {
			return false
		}
	}
	return true
}
