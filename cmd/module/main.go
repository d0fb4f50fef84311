package main

import (
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"

	pickplace "so_pickplace"
)

func main() {
	module.ModularMain(
		resource.APIModel{API: generic.API, Model: pickplace.PickPlaceServiceModel},
	)
}
