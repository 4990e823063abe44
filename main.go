package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/laplace-pym/ndtview/ndt"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile   = flag.String("config", "config.yaml", "Path to configuration file")
	renderOnly   = flag.Bool("render", false, "Render the map and exit")
	mapFile      = flag.String("map", "", "Point-cloud map file (overrides config map.path)")
	renderFormat = flag.String("format", "raster", "Render format: raster or vector")
	outputFile   = flag.String("output", "map.png", "Output file for --render mode")
	gridSpacing  = flag.Float64("grid-spacing", 0, "Grid line spacing in meters for vector renders (0 = config value)")
	serveMode    = flag.Bool("serve", false, "Run the supervision service with the HTTP surface")
	httpPort     = flag.Int("http-port", 0, "HTTP server port (0 = config value)")
	writeConfig  = flag.Bool("write-config", false, "Write a default config.yaml and exit")
)

func main() {
	flag.Parse()
	fmt.Printf("ndtview version: %s\n", Version)

	if *writeConfig {
		runWriteConfig()
		return
	}

	if *renderOnly {
		runRender()
		return
	}

	if *serveMode {
		runService()
		return
	}

	fmt.Println("ndtview: NDT localization supervisor and map viewer")
	fmt.Println("Use --serve to run the supervision service")
	fmt.Println("Use --render to render the point-cloud map and exit")
	fmt.Println("Use --write-config to generate a starter config.yaml")
	fmt.Println("\nConfiguration:")
	fmt.Println("  config.yaml - broker, localizer command, and map settings")
	fmt.Println("  NDT_BROKER / NDT_CLIENT_ID / NDT_POSE_TOPIC override the file")
}

// runWriteConfig writes a starter configuration next to the binary
func runWriteConfig() {
	if _, err := os.Stat(*configFile); err == nil {
		log.Fatalf("Refusing to overwrite existing %s", *configFile)
	}
	config := ndt.DefaultConfig()
	if err := ndt.SaveConfig(*configFile, config); err != nil {
		log.Fatalf("Error writing config: %v", err)
	}
	fmt.Printf("Wrote %s\n", *configFile)
}

// loadConfigOrDefault loads the configured file, falling back to defaults
// plus environment variables when the file is absent.
func loadConfigOrDefault() *ndt.Config {
	if _, err := os.Stat(*configFile); err != nil {
		log.Printf("No config file at %s, using defaults and environment", *configFile)
		return ndt.DefaultConfig()
	}
	config, err := ndt.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Loaded config from %s", *configFile)
	return config
}

// runRender loads the map and writes one image, no service involved
func runRender() {
	config := loadConfigOrDefault()
	if *mapFile != "" {
		config.Map.Path = *mapFile
	}

	var cloud *ndt.Cloud
	if config.Map.Path == "" {
		fmt.Println("No map configured, rendering sample cloud")
		cloud = ndt.SampleCloud(1000, nil)
	} else {
		var err error
		cloud, err = ndt.LoadCloud(config.Map.Path)
		if err != nil {
			log.Fatalf("Error loading map: %v", err)
		}
		fmt.Printf("Loaded %s (%d points)\n", config.Map.Path, cloud.Len())
	}

	switch *renderFormat {
	case "raster":
		renderer := ndt.NewCloudRenderer(cloud)
		renderer.Scale = config.Map.Scale
		renderer.MaxPoints = config.Map.MaxDisplayPoints
		if err := renderer.SavePNG(*outputFile); err != nil {
			log.Fatalf("Error rendering raster: %v", err)
		}
		fmt.Printf("Created raster: %s\n", *outputFile)

	case "vector":
		renderer := ndt.NewCloudVectorRenderer(cloud)
		renderer.Scale = config.Map.Scale
		renderer.GridSpacing = config.Map.GridSpacing
		if *gridSpacing > 0 {
			renderer.GridSpacing = *gridSpacing
		}

		outputPath := *outputFile
		if outputPath == "map.png" {
			outputPath = "map.svg"
		}

		outFile, err := os.Create(outputPath)
		if err != nil {
			log.Fatalf("Error creating output file %s: %v", outputPath, err)
		}
		defer func() {
			if err := outFile.Close(); err != nil {
				log.Printf("Warning: error closing output file %s: %v", outputPath, err)
			}
		}()

		if strings.EqualFold(filepath.Ext(outputPath), ".png") {
			if err := renderer.RenderToPNG(outFile); err != nil {
				log.Fatalf("Error rendering vector PNG: %v", err)
			}
		} else {
			if err := renderer.RenderToSVG(outFile); err != nil {
				log.Fatalf("Error rendering vector SVG: %v", err)
			}
		}
		fmt.Printf("Created vector: %s\n", outputPath)

	default:
		log.Fatalf("Invalid format: %s (must be raster or vector)", *renderFormat)
	}

	fmt.Println("Done!")
}

// runService starts the supervision service: the drain loop, the pose feed,
// and the HTTP surface. The localizer process is started on request through
// the HTTP API, not automatically.
func runService() {
	fmt.Println("Starting ndtview service...")

	config := loadConfigOrDefault()
	if *httpPort > 0 {
		config.HTTP.Port = *httpPort
	}
	if *mapFile != "" {
		config.Map.Path = *mapFile
	}

	app := NewApp(config)
	if err := app.LoadMap(); err != nil {
		log.Printf("Warning: %v (map endpoints will be unavailable)", err)
	}
	app.StartDrain()

	if err := app.StartFeed(); err != nil {
		log.Printf("Warning: pose feed unavailable: %v", err)
		log.Printf("Use POST /feed/restart once the broker is reachable")
	}

	httpServer := newHTTPServer(app)
	go func() {
		addr := fmt.Sprintf(":%d", config.HTTP.Port)
		fmt.Printf("HTTP server starting on %s\n", addr)
		if err := http.ListenAndServe(addr, httpServer); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	fmt.Println("\nService Running")
	fmt.Println("===============")
	fmt.Printf("\nMQTT:\n")
	fmt.Printf("  Broker: %s\n", config.MQTT.Broker)
	fmt.Printf("  Pose topic: %s\n", config.MQTT.PoseTopic)
	fmt.Printf("  Publishing to: %s/pose, %s/status\n", config.MQTT.PublishPrefix, config.MQTT.PublishPrefix)
	fmt.Printf("\nLocalizer:\n")
	fmt.Printf("  Command: %s\n", config.Launcher.Command)
	if config.Launcher.WorkDir != "" {
		fmt.Printf("  Workdir: %s\n", config.Launcher.WorkDir)
	}
	fmt.Printf("\nHTTP endpoints (port %d):\n", config.HTTP.Port)
	fmt.Println("  GET  /health            - Health check")
	fmt.Println("  GET  /status            - Full service status")
	fmt.Println("  GET  /pose              - Latest pose (degrees)")
	fmt.Println("  GET  /log?n=N           - Localizer output tail")
	fmt.Println("  GET  /map.png           - Raster map with pose and trail")
	fmt.Println("  GET  /map.svg           - Vector map")
	fmt.Println("  GET  /track.geojson     - Trajectory export")
	fmt.Println("  POST /localizer/start   - Launch the localizer")
	fmt.Println("  POST /localizer/stop?confirm=1")
	fmt.Println("  POST /feed/restart      - Reconnect the pose feed")
	fmt.Println("  POST /gps/save?lon=&lat=&alt=")
	fmt.Println("  GET  /gps/latest        - Last saved coordinate")
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	fmt.Println("\nShutting down service...")
	app.Shutdown()
	fmt.Println("Service stopped")
}
