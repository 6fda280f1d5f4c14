// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"

	"github.com/devblok/ninjadev/core"
	"github.com/devblok/ninjadev/gfx/vkr"
	log "github.com/sirupsen/logrus"
)

var (
	debug  = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	indent = flag.Bool("indent", false, "Indent the JSON output")
)

func main() {
	flag.Parse()

	cfg := core.InstanceConfiguration{
		DebugMode:  *debug,
		Extensions: []string{},
		Layers:     []string{},
	}

	instance, err := vkr.NewVulkanInstance(vkr.DefaultVulkanApplicationInfo, nil, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer instance.Destroy()

	var bytes []byte
	if *indent {
		bytes, err = json.MarshalIndent(instance.PhysicalDevicesInfo(), "", "  ")
	} else {
		bytes, err = json.Marshal(instance.PhysicalDevicesInfo())
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s\n", bytes)
}
