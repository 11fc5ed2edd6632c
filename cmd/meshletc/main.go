// meshletc clusters the triangle meshes of glTF models into meshlets.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-meshlet/internal/config"
	"github.com/Faultbox/midgard-meshlet/internal/gltfmesh"
	"github.com/Faultbox/midgard-meshlet/internal/logger"
	"github.com/Faultbox/midgard-meshlet/pkg/meshlet"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile, cfg.Logging.JSON); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("effective config: %+v", *cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch command {
	case "build":
		err = cmdBuild(ctx, cfg, args)
	case "info":
		err = cmdInfo(args)
	case "config":
		err = cmdConfig(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshletc - meshlet builder for glTF models

Usage:
  meshletc [flags] <command> <model.gltf|model.glb>

Commands:
  build <model>   Cluster every triangle primitive and write a YAML report
  info  <model>   Show primitives, counts, bounds and open edges
  config [path]   Save the effective settings (default user config dir)

Flags:
  -config <path>      Config file (default $MESHLETC_CONFIG, ./meshletc.yaml or user config dir)
  -max-vertices <n>   Maximum unique vertices per meshlet (3..1024)
  -max-prims <n>      Maximum triangles per meshlet
  -workers <n>        Primitives clustered in parallel
  -no-cull            Skip bounding sphere and normal cone generation
  -cw                 Front faces wind clockwise
  -o <path>           Report output path (default stdout)
  -debug              Enable debug logging

Examples:
  meshletc build model.glb
  meshletc -max-vertices 128 -max-prims 256 -o report.yaml build scene.gltf
  meshletc info model.glb
  meshletc -max-vertices 128 config ./meshletc.yaml`)
}

func cmdBuild(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: meshletc build <model>")
	}
	path := args[0]
	log := logger.Named("build")

	start := time.Now()
	mesh, err := gltfmesh.Load(path)
	if err != nil {
		return err
	}
	log.Info("model loaded",
		zap.String("path", path),
		zap.Int("primitives", len(mesh.Sections)),
		zap.Int("vertices", len(mesh.Positions)),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Duration("elapsed", time.Since(start)))

	opts := cfg.BuildOptions(log)
	result, err := meshlet.BuildSections(ctx, mesh.Indices, mesh.Sections, mesh.Positions, opts)
	if err != nil {
		return err
	}

	rep := newReport(path, mesh, result, opts)
	if rep.Totals.DegenerateCones > 0 {
		logger.Warn("meshlets without a usable normal cone",
			zap.Int("count", rep.Totals.DegenerateCones),
			zap.Int("meshlets", rep.Totals.Meshlets))
	}
	if err := writeReport(cfg.Output.Report, rep); err != nil {
		return err
	}
	if !writesStdout(cfg.Output.Report) {
		logger.Info("report written", zap.String("path", cfg.Output.Report))
	}
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
		if err := cfg.SaveTo(path); err != nil {
			return err
		}
	} else {
		var err error
		if path, err = cfg.Save(); err != nil {
			return err
		}
	}
	logger.Info("config written", zap.String("path", path))
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: meshletc info <model>")
	}

	mesh, err := gltfmesh.Load(args[0])
	if err != nil {
		return err
	}

	lo, hi := mesh.Bounds()
	fmt.Printf("Model:      %s\n", args[0])
	fmt.Printf("Primitives: %d\n", len(mesh.Sections))
	fmt.Printf("Vertices:   %d\n", len(mesh.Positions))
	fmt.Printf("Triangles:  %d\n", mesh.TriangleCount())
	fmt.Printf("Bounds:     (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	fmt.Println()
	fmt.Printf("  %-24s %10s %10s %10s\n", "PRIMITIVE", "VERTICES", "TRIANGLES", "OPEN EDGES")

	for i, s := range mesh.Sections {
		adj, err := meshlet.BuildAdjacency(mesh.Indices[s.IndexStart:s.IndexStart+s.IndexCount], mesh.Positions)
		if err != nil {
			return fmt.Errorf("primitive %d: %w", i, err)
		}
		p := mesh.Primitives[i]
		logger.Debug("adjacency built", zap.String("primitive", primitiveName(p)), zap.Int("open_edges", adj.BoundaryEdges()))
		fmt.Printf("  %-24s %10d %10d %10d\n", primitiveName(p), p.Vertices, p.Triangles, adj.BoundaryEdges())
	}
	return nil
}

func primitiveName(p gltfmesh.Primitive) string {
	name := p.Mesh
	if name == "" {
		name = fmt.Sprintf("mesh%d", p.MeshIndex)
	}
	return fmt.Sprintf("%s/%d", name, p.Index)
}
