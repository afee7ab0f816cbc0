package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/voxgrid/internal/monitor"
	"github.com/banshee-data/voxgrid/internal/pointcloud"
	"github.com/banshee-data/voxgrid/internal/voxel"
	"github.com/banshee-data/voxgrid/internal/voxeldb"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode: voxelize a synthetic demo cloud at startup")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "voxgrid.db", "Path to the sqlite snapshot database")
	datasetID  = flag.String("dataset", "default", "Dataset ID served by this instance")
	migrations = flag.String("migrations", "", "Migrations directory; when set, pending migrations run at startup")
	workers    = flag.Int("workers", 0, "Voxelization worker count (0 = auto)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	vdb, err := voxeldb.New(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer vdb.Close()

	if *migrations != "" {
		if err := vdb.MigrateUp(*migrations); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	manager := voxel.NewGridManager(*datasetID, 8)
	voxel.RegisterGridManager(*datasetID, manager)

	// restore the newest persisted grid so a restart does not come up
	// empty-handed
	if snap, err := vdb.LatestGridSnapshot(*datasetID); err != nil {
		log.Printf("failed to look up latest snapshot: %v", err)
	} else if snap != nil {
		res, err := voxel.Restore(snap)
		if err != nil {
			log.Printf("failed to restore snapshot %d: %v", *snap.SnapshotID, err)
		} else {
			manager.SetCurrent(res)
			log.Printf("restored snapshot %d: dims=%v total=%d", *snap.SnapshotID, res.Grid.Spec.Dims, res.TotalPoints)
		}
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *devMode && manager.Current() == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := manager.Rebuild(ctx, voxel.VoxelizeRequest{
				Points:    pointcloud.SphereShell(100_000, 50.0, 0.1, 42),
				VoxelSize: 2.0,
				Workers:   *workers,
			})
			if err != nil {
				log.Printf("demo voxelize failed: %v", err)
				return
			}
			log.Printf("demo grid ready: dims=%v total=%d", res.Grid.Spec.Dims, res.TotalPoints)
		}()
	}

	server := monitor.NewWebServer(monitor.WebServerConfig{
		Address:     *listen,
		DatasetID:   *datasetID,
		DB:          vdb,
		Workers:     *workers,
		AdminRoutes: true,
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx); err != nil {
			log.Printf("web server error: %v", err)
		}
	}()

	<-ctx.Done()
	wg.Wait()

	// keep the last grid across restarts
	if manager.Current() != nil {
		if err := manager.Persist(vdb, "shutdown"); err != nil {
			log.Printf("failed to persist grid on shutdown: %v", err)
		}
	}
}
