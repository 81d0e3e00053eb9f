package app

import (
	"github.com/vk/capsulrun/internal/registry"
	"github.com/vk/capsulrun/modules/fsl"
	"github.com/vk/capsulrun/modules/matlab"
	"github.com/vk/capsulrun/modules/print"
)

// coreModules is the definitive list of all modules that are compiled into
// the runprocess binary.
var coreModules = []registry.Module{
	&print.Module{},
	&fsl.Module{},
	&matlab.Module{},
}
