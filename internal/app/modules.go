package app

import (
	"github.com/vk/catwalk/internal/registry"
	"github.com/vk/catwalk/modules/csv_table"
	"github.com/vk/catwalk/modules/harmonize"
	"github.com/vk/catwalk/modules/pivot_wide"
	"github.com/vk/catwalk/modules/report"
)

// coreModules lists the built-in transform modules registered when the caller
// does not inject its own set.
var coreModules = []registry.Module{
	&csv_table.Module{},
	&harmonize.Module{},
	&pivot_wide.Module{},
	&report.Module{},
}
