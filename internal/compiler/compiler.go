// Copyright 2026 Blend65 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package compiler orchestrates the full pipeline from source text to
// 6502 assembly, per spec.md §6 ("CLI calls Compiler.compile({files,
// config})"). It owns no parsing/codegen logic itself; it only sequences
// the phase packages and turns their accumulated diagnostics into an
// ExitCode, mirroring how the teacher's main.go drove NewTranslateUnit
// then file.Translate() and mapped the returned error to os.Exit(1).
package compiler

import (
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blend65/blend65/internal/ast"
	"github.com/blend65/blend65/internal/codegen6502"
	"github.com/blend65/blend65/internal/config"
	"github.com/blend65/blend65/internal/diag"
	"github.com/blend65/blend65/internal/il"
	"github.com/blend65/blend65/internal/ilgen"
	"github.com/blend65/blend65/internal/lexer"
	"github.com/blend65/blend65/internal/optimizer"
	"github.com/blend65/blend65/internal/parser"
	"github.com/blend65/blend65/internal/sema"
	"github.com/blend65/blend65/internal/source"
	"github.com/blend65/blend65/internal/ssa"
)

// ExitCode is the fixed enum from spec.md §6.
type ExitCode int

const (
	ExitSuccess ExitCode = iota
	ExitInvalidArgs
	ExitCompilationError
	ExitInternalError
)

func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitInvalidArgs:
		return "invalid-args"
	case ExitCompilationError:
		return "compilation-error"
	case ExitInternalError:
		return "internal-error"
	default:
		return "unknown"
	}
}

// Request is one compilation invocation: the source files to compile and
// the resolved compiler options (CLI flags already merged over config file
// defaults by the caller).
type Request struct {
	Files  []string
	Config config.CompilerOptions
}

// Result is everything a caller (CLI or test) needs after a compile: the
// emitted assembly, its source map, every accumulated diagnostic, and the
// exit code to surface to the process.
type Result struct {
	ExitCode  ExitCode
	Assembly  string
	SourceMap []codegen6502.SourceMapEntry
	Diags     []diag.Diagnostic
}

// Session is one Compile call's identity, used to namespace --debug source
// map dumps so repeated runs do not clobber each other's output.
type Session struct {
	ID  uuid.UUID
	Log *logrus.Logger
}

// NewSession creates a fresh session with a random id. log may be nil, in
// which case logrus.StandardLogger() is used.
func NewSession(log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{ID: uuid.New(), Log: log}
}

// Compile runs every phase of the pipeline over req.Files in order,
// accumulating diagnostics into one collector per spec.md §7's single
// accumulated-diagnostics model, and maps the outcome to an ExitCode.
func (s *Session) Compile(req Request) Result {
	log := s.Log
	diags := diag.NewCollector()

	if len(req.Files) == 0 {
		diags.Errorf(diag.Code("NoInputFiles"), source.Location{}, "no input files given")
		return s.result(diags, ExitInvalidArgs, "", nil)
	}

	log.WithField("session", s.ID).WithField("files", req.Files).Info("compile: starting")

	programs := s.parseAll(req.Files, diags)
	if diags.HasErrors() {
		log.Warn("compile: aborting after parse errors")
		return s.result(diags, ExitCompilationError, "", nil)
	}

	log.Debug("compile: running semantic analysis")
	analyzer := sema.NewAnalyzer(diags)
	sr := analyzer.Analyze(programs)
	if diags.HasErrors() {
		log.Warn("compile: aborting after semantic errors")
		return s.result(diags, ExitCompilationError, "", nil)
	}

	mod := s.lowerAndOptimize(programs, sr, diags)
	if diags.HasErrors() {
		log.Warn("compile: aborting after IL-stage errors")
		return s.result(diags, ExitCompilationError, "", nil)
	}

	exitBehavior := codegen6502.ParseExitBehavior(req.Config.ExitBehavior)
	targetName := req.Config.Target
	if targetName == "" {
		targetName = "c64"
	}
	target, err := codegen6502.GetTarget(targetName)
	if err != nil {
		diags.Errorf(diag.Code("UnknownTarget"), source.Location{}, "unknown target %q: %v", targetName, err)
		return s.result(diags, ExitInvalidArgs, "", nil)
	}

	log.WithField("target", targetName).WithField("exitBehavior", exitBehavior).Info("compile: generating code")
	gen := codegen6502.NewGenerator(sr.Types, diags, target, exitBehavior)
	asm, sourceMap := gen.Generate(mod)

	if diags.MaxSeverity() >= diag.SeverityInternal {
		log.Error("compile: internal error during code generation")
		return s.result(diags, ExitInternalError, asm, sourceMap)
	}
	if diags.HasErrors() {
		return s.result(diags, ExitCompilationError, asm, sourceMap)
	}

	log.Info("compile: succeeded")
	return s.result(diags, ExitSuccess, asm, sourceMap)
}

func (s *Session) parseAll(files []string, diags *diag.Collector) []*ast.Program {
	var programs []*ast.Program
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			diags.Errorf(diag.Code("FileNotFound"), source.Location{}, "reading %s: %v", path, err)
			continue
		}
		s.Log.WithField("file", path).Debug("compile: lexing")
		toks := lexer.New(path, string(src), diags).Tokenize()
		s.Log.WithField("file", path).Debug("compile: parsing")
		prog := parser.New(path, toks, diags).ParseProgram()
		programs = append(programs, prog)
	}
	return programs
}

// lowerAndOptimize runs IL generation, SSA promotion/verification, and
// optimization over every checked module, then merges the per-module
// il.Modules into a single linked module for code generation, qualifying
// nothing further since ilgen already qualifies cross-module references by
// module name.
func (s *Session) lowerAndOptimize(programs []*ast.Program, sr *sema.Result, diags *diag.Collector) *il.Module {
	byName := map[string]*ast.Program{}
	for _, p := range programs {
		byName[p.ModuleName] = p
	}

	gen := ilgen.NewGenerator(sr.Types, sr.Metadata, diags, sr.Globals)

	linked := &il.Module{Name: sr.MainModule}
	for _, name := range sr.ModuleOrder {
		prog, ok := byName[name]
		if !ok {
			continue
		}
		s.Log.WithField("module", name).Debug("compile: lowering to IL")
		mod := gen.Generate(prog)

		for _, fn := range mod.Functions {
			ssa.Promote(fn)
			tree := ssa.BuildDomTree(fn.CFG)
			for _, verr := range ssa.Verify(fn, tree) {
				diags.Internalf(diag.Code("MalformedSSA"), source.Location{}, "%s.%s: %v", name, fn.Name, verr)
			}
		}

		linked.Globals = append(linked.Globals, mod.Globals...)
		linked.Functions = append(linked.Functions, mod.Functions...)
	}

	s.Log.Debug("compile: running optimizer pipeline")
	optimizer.RunModule(linked, diags)

	s.Log.Debug("compile: resolving phi nodes for code generation")
	for _, fn := range linked.Functions {
		ssa.ResolvePhis(fn)
	}
	return linked
}

func (s *Session) result(diags *diag.Collector, code ExitCode, asm string, sourceMap []codegen6502.SourceMapEntry) Result {
	return Result{
		ExitCode:  code,
		Assembly:  asm,
		SourceMap: sourceMap,
		Diags:     diags.All(),
	}
}
