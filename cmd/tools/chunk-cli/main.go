package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/annel0/voxelmap/internal/config"
	"github.com/annel0/voxelmap/internal/grid"
	"github.com/annel0/voxelmap/internal/storage"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/annel0/voxelmap/internal/world/block"
	"github.com/annel0/voxelmap/internal/world/block/implementations"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config (default $VOXELMAP_CONFIG)")
		root       = flag.String("root", "", "Map directory (default storage.path from config)")
		command    = flag.String("cmd", "inspect", "Command: inspect, promote, restore")
		slot       = flag.Int("slot", 0, "Save slot")
		x          = flag.Int("x", 0, "Chunk X")
		y          = flag.Int("y", 0, "Chunk Y")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if *root == "" {
		*root = cfg.Storage.Path
	}

	fs, err := storage.NewFileStorage(*root, cfg.World.ChunkExt)
	if err != nil {
		log.Fatalf("❌ Failed to open map directory: %v", err)
	}
	defer fs.Close()

	ctx := context.Background()
	key := vec.Vec2{X: *x, Y: *y}

	switch *command {
	case "inspect":
		worldCfg, err := newWorldConfig(cfg)
		if err != nil {
			log.Fatalf("❌ Invalid world config: %v", err)
		}
		if err := inspect(ctx, fs, worldCfg, *slot, key); err != nil {
			log.Fatalf("❌ Inspect failed: %v", err)
		}

	case "promote":
		data, err := fs.LoadChunk(ctx, *slot, key)
		if err != nil {
			log.Fatalf("❌ Load failed: %v", err)
		}
		if err := fs.SaveTemplate(ctx, key, data); err != nil {
			log.Fatalf("❌ Promote failed: %v", err)
		}
		fmt.Printf("✅ %s -> %s\n", fs.ChunkPath(*slot, key), fs.TemplatePath(key))

	case "restore":
		if err := fs.RestoreTemplate(ctx, *slot, key); err != nil {
			log.Fatalf("❌ Restore failed: %v", err)
		}
		fmt.Printf("✅ %s -> %s\n", fs.TemplatePath(key), fs.ChunkPath(*slot, key))

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		flag.Usage()
		os.Exit(2)
	}
}

func newWorldConfig(cfg *config.Config) (*world.WorldConfig, error) {
	w := cfg.World
	reg := block.NewRegistry(block.BlockID(w.CustomBlockThreshold))
	if err := implementations.RegisterDefaults(reg); err != nil {
		return nil, err
	}
	return world.NewWorldConfig(w.BlocksX, w.BlocksY, w.BlocksZ,
		grid.Geometry{EdgeLength: w.EdgeLength, DiagLength: w.DiagLength}, reg)
}

// inspect печатает сводку по слоям и сущностям файла чанка
func inspect(ctx context.Context, fs *storage.FileStorage, cfg *world.WorldConfig, slot int, key vec.Vec2) error {
	data, err := fs.LoadChunk(ctx, slot, key)
	if err != nil {
		return err
	}
	decoded, err := world.DecodeChunk(cfg, key, data)
	if err != nil {
		return err
	}

	c := decoded.Chunk
	fmt.Printf("📦 Chunk %s (%s, %d bytes)\n", key, fs.ChunkPath(slot, key), len(data))
	fmt.Printf("   Blocks: %d\n", c.CountBlocks())
	for z := 0; z < cfg.BlocksZ; z++ {
		if c.IsLayerEmpty(z) {
			continue
		}
		counts := make(map[string]int)
		c.ForEach(func(coord grid.Coordinate, b block.Block) {
			if coord.Z == z && !b.IsEmpty() {
				counts[cfg.Blocks.Name(b)]++
			}
		})
		fmt.Printf("   Layer %d: %v\n", z, counts)
	}
	if len(decoded.AbandonedLayers) > 0 {
		fmt.Printf("⚠️  Abandoned layers: %v\n", decoded.AbandonedLayers)
	}

	fmt.Printf("   Entities: %d\n", len(decoded.Entities))
	for _, e := range decoded.Entities {
		fmt.Printf("   - %s %s at %s\n", e.Class(), e.ID(), e.Position())
	}
	for _, skipped := range decoded.SkippedEntities {
		fmt.Printf("⚠️  Skipped entity: %v\n", skipped)
	}
	return nil
}
