package executor

import (
	"bufio"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"ccargo/internal/ccerr"
	"ccargo/internal/ccpath"
	"ccargo/internal/depinfo"
	"ccargo/internal/msgqueue"
	"ccargo/internal/unit"
)

// runStep resolves step's Program, runs it with its declared Args in its
// package root, and records its output sentinel plus any
// `ccargo:rerun-if-changed:<path>` directives it printed on stdout,
// mirroring the original's Step::run.
func (cx *Context) runStep(ctx context.Context, step *unit.Step, stdout, stderr *msgqueue.Queue) error {
	program, err := cx.resolveProgram(step)
	if err != nil {
		return err
	}

	args := append([]string{}, argvPrefix(step.Program)...)
	args = append(args, step.Args...)

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = step.Package.Root()

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return ccerr.ExecError("failed to open stdout pipe for step `%s`: %s", step.FullName(), err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return ccerr.ExecError("failed to open stderr pipe for step `%s`: %s", step.FullName(), err)
	}
	if err := cmd.Start(); err != nil {
		return ccerr.ExecError("failed to start step `%s`: %s", step.FullName(), err)
	}

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		sc := bufio.NewScanner(stderrPipe)
		w := stderr.Writer()
		for sc.Scan() {
			w.Write([]byte("ccargo:warning="))
			w.Write(sc.Bytes())
			w.Write([]byte("\n"))
		}
	}()

	root := step.Package.Root()
	info := depinfo.New()
	hasRerun := false
	outW := stdout.Writer()

	sc := bufio.NewScanner(stdoutPipe)
	for sc.Scan() {
		line := sc.Text()
		kind, body, err := parseStepMessage(line)
		if err != nil {
			outW.Write([]byte("Step `" + step.FullName().String() + "` output parse error: " + err.Error() + "\n"))
			continue
		}
		switch kind {
		case stepMsgRaw:
			outW.Write([]byte(body + "\n"))
		case stepMsgRerunIfChanged:
			rel, ok := relativeToRoot(body, root)
			if !ok {
				outW.Write([]byte("Path `" + body + "` was ignored as it is outside of the package root: `" + root + "`\n"))
				continue
			}
			idx := info.Intern(depinfo.PackageRootRelative, rel)
			info.AddObject(idx, []int{idx})
			hasRerun = true
		}
	}

	<-stderrDone
	err = cmd.Wait()

	if werr := ccpath.Write(step.OutputPath(cx.Layout), nil); werr != nil {
		return werr
	}
	if hasRerun {
		if werr := ccpath.Write(step.DepInfoPath(cx.Layout), info.Serialize()); werr != nil {
			return werr
		}
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return errors.Errorf("step `%s` exited with error code %d", step.FullName(), exitErr.ExitCode())
		}
		return errors.Errorf("step `%s` was terminated: %s", step.FullName(), err)
	}
	return nil
}

// resolveProgram turns a Step's Program into the concrete executable
// path to run: a sibling target's build output for a target reference, a
// bare path/PATH-lookup name for a binary, or the configured interpreter
// for a script (the script file itself is passed as its first argument,
// see argvPrefix).
func (cx *Context) resolveProgram(step *unit.Step) (string, error) {
	switch step.Program.Kind {
	case unit.ProgramTargetRef:
		dep, ok := cx.Units.Get(step.Program.Target, step.Package)
		if !ok {
			dep, ok = cx.Units.Named(step.Program.Target)
		}
		if !ok {
			return "", errors.Errorf("step `%s` references unknown target `%s`", step.FullName(), step.Program.Target)
		}
		target, ok := dep.AsTarget()
		if !ok {
			return "", errors.Errorf("step `%s` program `%s` does not name a target", step.FullName(), step.Program.Target)
		}
		return cx.targetIO[target].Output, nil
	case unit.ProgramBinary:
		return step.Program.Binary, nil
	case unit.ProgramScript:
		return step.Program.Tool, nil
	default:
		return "", errors.Errorf("step `%s` has an unrecognized program kind", step.FullName())
	}
}

// argvPrefix returns the extra leading argument a script program needs
// (the script path itself, passed to its interpreter ahead of the step's
// own declared Args).
func argvPrefix(p unit.Program) []string {
	if p.Kind == unit.ProgramScript {
		return []string{p.Script}
	}
	return nil
}

type stepMsgKind int

const (
	stepMsgRaw stepMsgKind = iota
	stepMsgRerunIfChanged
)

// parseStepMessage dispatches a line of step stdout into the small
// "ccargo:<directive>:<value>" protocol steps may use to report extra
// rerun-if-changed paths, falling back to treating the line as plain
// output to relay verbatim.
func parseStepMessage(line string) (stepMsgKind, string, error) {
	rest, ok := strings.CutPrefix(line, "ccargo:")
	if !ok {
		return stepMsgRaw, line, nil
	}
	if path, ok := strings.CutPrefix(rest, "rerun-if-changed:"); ok {
		return stepMsgRerunIfChanged, path, nil
	}
	return 0, "", errors.Errorf("invalid step directive `%s`", line)
}

// relativeToRoot resolves path (possibly relative) against root and
// reports whether the result stays within root.
func relativeToRoot(path, root string) (string, bool) {
	abs := path
	if !strings.HasPrefix(path, "/") && !hasWindowsDrivePrefix(path) {
		abs = root + "/" + path
	}
	rel := strings.TrimPrefix(abs, root+"/")
	if rel == abs {
		return "", false
	}
	if clean := filepath.ToSlash(filepath.Clean(rel)); clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return rel, true
}

func hasWindowsDrivePrefix(path string) bool {
	return len(path) >= 2 && path[1] == ':'
}
