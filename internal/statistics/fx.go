package statistics

import (
	"github.com/smallbiznis/fieldreport/internal/statistics/service"
	"go.uber.org/fx"
)

// Module depends on the report and user repositories provided by their
// own modules.
var Module = fx.Module("statistics.service",
	fx.Provide(service.New),
)
