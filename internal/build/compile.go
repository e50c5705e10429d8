package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"ccargo/internal/ccerr"
	"ccargo/internal/depinfo"
	"ccargo/internal/toolchain"
	"ccargo/internal/unit"
)

// maxParallelCompiles bounds concurrent compiler invocations; unlike the
// original's purely sequential-or-all-parallel choice, this caps fan-out
// to the host's CPU count so a huge translation unit count doesn't
// spawn thousands of simultaneous compiler processes at once.
func maxParallelCompiles() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

func (b *Builder) compileObjects(ctx context.Context, objs []Object) error {
	tools, ok := b.Toolchain.ToolsFor(b.lang)
	if !ok {
		return ccerr.InvalidArg("no %s compiler resolved for target %q", b.lang, b.target())
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallelCompiles())

	for _, obj := range objs {
		obj := obj
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			return b.compileObject(gctx, tools.CC, obj)
		})
	}
	return g.Wait()
}

func (b *Builder) compileObject(ctx context.Context, cc *toolchain.Tool, obj Object) error {
	tool := cc.Clone(toolchain.KindCompiler)
	fc := b.flagContext()
	fc.AddDefaultCompileFlags(tool, b.lang)
	toolchain.AddWarnings(tool, b.Options.Warnings)
	tool.AddArgs(b.Options.CCFlags...)

	cmd := tool.ToCommand()
	b.addDefines(cmd)
	b.addIncludes(cmd)

	msvc := tool.Family().IsMsvc()
	if b.syntaxOnly {
		if msvc {
			cmd.Args = append(cmd.Args, "-Zs")
			if b.Profile.Debug {
				cmd.Args = append(cmd.Args, "-Z7")
			}
		} else {
			cmd.Args = append(cmd.Args, "-fsyntax-only")
		}
	} else if msvc {
		if b.Profile.Debug {
			cmd.Args = append(cmd.Args, "-Zi")
		}
		cmd.Args = append(cmd.Args, "-Fd"+withExt(obj.Dst, ".pdb"))
		cmd.Args = append(cmd.Args, "-Fo"+obj.Dst)
	} else {
		if !b.SkipDeps {
			cmd.Args = append(cmd.Args, "-MMD", "-MF", obj.DepPath())
		}
		cmd.Args = append(cmd.Args, "-o", obj.Dst)
	}
	cmd.Args = append(cmd.Args, "-c", obj.Src)

	stdout := b.Stdout.Writer()
	stderr := b.Stderr.Writer()
	defer stdout.Close()
	defer stderr.Close()
	stderr.SetCachePath(obj.StderrCachePath())

	includes, err := runStep(ctx, cmd, tool.Name(), toolchain.KindCompiler, tool.Family(), b.Colored, stdout, stderr)
	if err != nil {
		return err
	}

	if msvc && !b.SkipDeps && !b.syntaxOnly {
		if err := writeMsvcDepInfo(obj.DepPath(), obj.Dst, includes); err != nil {
			return err
		}
	}
	return nil
}

// expandSource preprocesses one source file with the resolved compiler
// and returns its expanded text, matching the original's expand_source
// ("-E", no object output).
func (b *Builder) expandSource(ctx context.Context, cc *toolchain.Tool, src string) ([]byte, error) {
	tool := cc.Clone(toolchain.KindCompiler)
	fc := b.flagContext()
	fc.AddDefaultCompileFlags(tool, b.lang)
	tool.AddArgs(b.Options.CCFlags...)

	cmd := tool.ToCommand()
	b.addDefines(cmd)
	b.addIncludes(cmd)
	cmd.Args = append(cmd.Args, "-E", src)
	cmd.Stdin = nil

	out, err := cmd.Output()
	if err != nil {
		return nil, ccerr.ExecError("failed to preprocess %q with %s: %s", src, tool.Name(), err)
	}
	return out, nil
}

// addDefines appends -D<NAME> for every configured macro plus the
// target's own STATIC/EXPORTS define, matching the original's
// convention of distinguishing static-link consumers from the shared
// library itself via a generated macro.
func (b *Builder) addDefines(cmd *exec.Cmd) {
	for _, d := range b.Options.Defines {
		cmd.Args = append(cmd.Args, "-D"+d)
	}
	if !b.Profile.Debug {
		cmd.Args = append(cmd.Args, "-DNDEBUG")
	}
	if b.Kind == unit.Static {
		cmd.Args = append(cmd.Args, "-D"+strings.ToUpper(b.Name)+"_STATIC")
	} else if b.Kind == unit.Shared {
		cmd.Args = append(cmd.Args, "-D"+strings.ToUpper(b.Name)+"_EXPORTS")
	}
}

func (b *Builder) addIncludes(cmd *exec.Cmd) {
	for _, inc := range b.Includes {
		cmd.Args = append(cmd.Args, "-I", inc)
	}
}

// writeMsvcDepInfo records the include paths MSVC prints via
// -showIncludes as an "@DEPS@" header listing (depinfo.WriteWindowsDepFile),
// since MSVC (unlike gcc/clang) has no native -MMD equivalent for plain
// C/C++ compiles. objPath is not part of that format.
func writeMsvcDepInfo(depPath, objPath string, includes []string) error {
	data := depinfo.WriteWindowsDepFile(includes)
	if err := os.MkdirAll(filepath.Dir(depPath), 0o755); err != nil {
		return ccerr.IO(err, "failed to create dependency directory for %q", depPath)
	}
	if err := os.WriteFile(depPath, data, 0o644); err != nil {
		return ccerr.IO(err, "failed to write dependency file %q", depPath)
	}
	return nil
}
