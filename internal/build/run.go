package build

import (
	"bytes"
	"context"
	"io"
	"os/exec"

	"ccargo/internal/ccerr"
	"ccargo/internal/msgqueue"
	"ccargo/internal/toolchain"
	"ccargo/internal/toolout"
)

// runStep executes cmd, streaming its stdout/stderr through the
// tool-output parser for kind/family so diagnostics print in the
// queue's ordered slot instead of racing other concurrent steps'
// output. It returns any MSVC `-showIncludes` paths scraped from the
// stream, for dependency-file synthesis on that family.
func runStep(ctx context.Context, cmd *exec.Cmd, name string, kind toolchain.ToolKind, family toolchain.Family, colored bool, stdout, stderr *msgqueue.Writer) ([]string, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, ccerr.ExecError("failed to open stdout pipe for %q: %s", name, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, ccerr.ExecError("failed to open stderr pipe for %q: %s", name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, ccerr.Wrap(ccerr.ToolExecError, err, "failed to start %q", name)
	}

	var includes []string
	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		it := toolout.NewMessageIter(stdoutPipe, kind, family, false, colored)
		drainMessages(it, stdout, colored)
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		it := toolout.NewMessageIter(stderrPipe, kind, family, false, colored)
		for _, inc := range drainMessages(it, stderr, colored) {
			includes = append(includes, inc)
		}
	}()
	<-done
	<-done

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return includes, ctx.Err()
	}
	if waitErr != nil {
		return includes, ccerr.Wrap(ccerr.ToolExecError, waitErr, "%q failed", name)
	}
	return includes, nil
}

// drainMessages prints every message from it to w (except Extra
// messages, whose include paths are returned instead).
func drainMessages(it *toolout.MessageIter, w *msgqueue.Writer, colored bool) []string {
	var buf bytes.Buffer
	var includes []string
	for {
		msg, ok := it.Next()
		if !ok {
			break
		}
		if msg.Kind == toolout.MsgExtra {
			includes = append(includes, msg.Extra.IncludePath)
			continue
		}
		buf.Reset()
		_ = msg.Print(&buf, colored)
		_, _ = w.Write(buf.Bytes())
	}
	return includes
}

// runSimple executes cmd to completion with no output streaming (used
// for the `ar s` symbol-table pass, which produces no interesting
// output on success).
func runSimple(cmd *exec.Cmd, name string) error {
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return ccerr.Wrap(ccerr.ToolExecError, err, "%q failed: %s", name, stderr.String())
	}
	return nil
}
