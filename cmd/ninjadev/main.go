// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx/vkr"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	logLevel     = flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
)

var configuration = core.DefaultConfiguration

func main() {
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	if err := run(); err != nil {
		log.WithError(err).Fatal("Render loop failed")
	}
}

func run() error {
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := trace.Start(f); err != nil {
			return err
		}
		defer trace.Stop()
	}

	if *memProfile != "" {
		defer writeHeapProfile(*memProfile)
	}

	shaders, err := vkr.LoadShaders(packr.NewBox("../../shaders"))
	if err != nil {
		return err
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		panic(err)
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		panic(err)
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := newWindow(configuration.Window)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	vkInstance, err := vkr.NewVulkanInstance(vkr.DefaultVulkanApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), core.InstanceConfiguration{
		DebugMode:  *debug,
		Extensions: window.VulkanGetInstanceExtensions(),
		Layers:     []string{},
	})
	if err != nil {
		return err
	}
	defer vkInstance.Destroy()
	log.WithFields(log.Fields{
		"extensions": vkInstance.Extensions(),
		"layers":     vkInstance.Layers(),
	}).Info("Vulkan instance created")

	surface, err := window.VulkanCreateSurface(vkInstance.Instance())
	if err != nil {
		return fmt.Errorf("sdl.VulkanCreateSurface(): %w", err)
	}
	vkInstance.SetSurface(surface)

	renderer, err := vkr.NewVulkanRenderer(vkInstance, configuration.Renderer, shaders)
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	if err := renderer.Initialise(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loop := core.NewLoop(&sdlWindow{window: window}, renderer, core.NewTimestep(configuration.Time))
	defer loop.Close()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		log.WithError(err).Error("Memory profile not written")
		return
	}
	defer f.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.WithError(err).Error("Memory profile not written")
	}
}
