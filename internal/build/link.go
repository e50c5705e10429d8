package build

import (
	"context"
	"os/exec"
	"strings"

	"ccargo/internal/ccerr"
	"ccargo/internal/msgqueue"
	"ccargo/internal/toolchain"
	"ccargo/internal/unit"
)

// maxObjectsPerChunk bounds how many object files go on one archiver
// invocation at a time, keeping the command line within OS limits (most
// pressingly Windows') on large static libraries.
const maxObjectsPerChunk = 100

func (b *Builder) link(ctx context.Context, dst string, objs []Object) error {
	tools, ok := b.Toolchain.ToolsFor(b.lang)
	if !ok {
		return ccerr.InvalidArg("no %s toolchain resolved for target %q", b.lang, b.target())
	}

	var allObjs []string
	for _, o := range objs {
		allObjs = append(allObjs, o.Dst)
	}
	allObjs = append(allObjs, b.Objects...)

	stdout := b.Stdout.Writer()
	stderr := b.Stderr.Writer()
	defer stdout.Close()
	defer stderr.Close()
	stderr.SetCachePath(withExt(dst, ".stderr"))

	for i := 0; i < len(allObjs); i += maxObjectsPerChunk {
		end := i + maxObjectsPerChunk
		if end > len(allObjs) {
			end = len(allObjs)
		}
		chunk := allObjs[i:end]
		first := i == 0

		var err error
		if b.Kind == unit.Static {
			err = b.assembleStatic(ctx, tools.AR, dst, chunk, first, stdout, stderr)
		} else {
			err = b.assembleShared(ctx, tools.LD, dst, chunk, stdout, stderr)
		}
		if err != nil {
			return err
		}
	}

	// Non-MSVC archives built with `ar cq` lack a symbol table; `ar s`
	// adds one as a separate pass.
	if b.Kind == unit.Static && !toolchain.IsMsvcTriple(b.target()) {
		cmd := tools.AR.ToCommand("s", dst)
		if err := runSimple(cmd, tools.AR.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) assembleStatic(ctx context.Context, ar *toolchain.Tool, dst string, objs []string, first bool, stdout, stderr *msgqueue.Writer) error {
	tool := ar.Clone(toolchain.KindArchiver)

	if tool.Family().IsMsvc() {
		tool.Arg("-nologo")
		tool.Arg(msvcArchFlag(b.target()))
		tool.Arg("-OUT:" + dst)
		tool.AddArgs(b.Options.ARFlags...)
		if !first {
			tool.Arg(dst)
		}
	} else {
		tool.AddArgs(b.Options.ARFlags...)
		tool.Arg("cq")
		tool.Arg(dst)
	}
	tool.AddArgs(objs...)

	cmd := tool.ToCommand()
	b.addLibraries(cmd, tool.Family())

	_, err := runStep(ctx, cmd, tool.Name(), toolchain.KindArchiver, tool.Family(), b.Colored, stdout, stderr)
	return err
}

func (b *Builder) assembleShared(ctx context.Context, ld *toolchain.Tool, dst string, objs []string, stdout, stderr *msgqueue.Writer) error {
	tool := ld.Clone(toolchain.KindLinker)
	msvc := tool.Family().IsMsvc()

	fc := b.flagContext()
	fc.AddDefaultLinkFlags(tool)
	tool.AddArgs(b.Options.LDFlags...)

	cmd := tool.ToCommand()
	if !msvc {
		cmd.Args = append(cmd.Args, objs...)
	}
	b.addLinkOutputs(cmd, dst, msvc)
	b.addLibraries(cmd, tool.Family())
	if msvc {
		cmd.Args = append(cmd.Args, objs...)
	}

	_, err := runStep(ctx, cmd, tool.Name(), toolchain.KindLinker, tool.Family(), b.Colored, stdout, stderr)
	return err
}

func (b *Builder) addLinkOutputs(cmd *exec.Cmd, dst string, msvc bool) {
	if msvc {
		cmd.Args = append(cmd.Args, "-OUT:"+dst)
	} else {
		cmd.Args = append(cmd.Args, "-o", dst)
	}
	for _, a := range b.artifacts() {
		switch a {
		case toolchain.ArtifactPdb:
			cmd.Args = append(cmd.Args, "-PDB:"+withExt(dst, a.Ext()))
		case toolchain.ArtifactIlk:
			cmd.Args = append(cmd.Args, "-ILK:"+withExt(dst, a.Ext()))
		case toolchain.ArtifactLib:
			cmd.Args = append(cmd.Args, "-IMPLIB:"+withExt(dst, a.Ext()))
		}
	}
}

// addLibraries appends every configured library path, translating to
// the MSVC/clang-on-Windows .lib extension where required, and appends
// the common MSVC system library set for non-static binaries.
func (b *Builder) addLibraries(cmd *exec.Cmd, family toolchain.Family) {
	target := b.target()
	for _, lib := range b.Libraries {
		if family.IsMsvc() || (family.IsClang() && toolchain.IsWindowsTriple(target)) {
			cmd.Args = append(cmd.Args, withExt(lib, toolchain.ArtifactLib.Ext()))
		} else {
			cmd.Args = append(cmd.Args, lib)
		}
	}
	if b.Kind != unit.Static && family.IsMsvc() {
		cmd.Args = append(cmd.Args, msvcSystemLibs...)
	}
}

var msvcSystemLibs = []string{
	"kernel32.lib", "user32.lib", "gdi32.lib", "winspool.lib",
	"shell32.lib", "ole32.lib", "oleaut32.lib", "uuid.lib",
	"comdlg32.lib", "advapi32.lib",
}

func msvcArchFlag(target string) string {
	if strings.Contains(target, "x86_64") {
		return "-machine:x64"
	}
	return "-machine:x86"
}
