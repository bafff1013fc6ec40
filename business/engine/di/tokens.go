// Package di contains dependency injection tokens for the engine context.
package di

import (
	"github.com/crossarb/crossarb/business/engine/app"
	"github.com/crossarb/crossarb/business/engine/domain"
	"github.com/crossarb/crossarb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Evaluator   = di.NewToken[*app.Evaluator]("engine.Evaluator")
	Controller  = di.NewToken[*app.Controller]("engine.Controller")
	Scheduler   = di.NewToken[*app.Scheduler]("engine.Scheduler")
	Reporter    = di.NewToken[app.Reporter]("engine.Reporter")
	ActivityLog = di.NewToken[*domain.ActivityLog]("engine.ActivityLog")
)

// Helper functions for type-safe access
func GetEvaluator(c di.ServiceRegistry) *app.Evaluator {
	return di.GetToken(c, Evaluator)
}

func GetController(c di.ServiceRegistry) *app.Controller {
	return di.GetToken(c, Controller)
}

func GetScheduler(c di.ServiceRegistry) *app.Scheduler {
	return di.GetToken(c, Scheduler)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetActivityLog(c di.ServiceRegistry) *domain.ActivityLog {
	return di.GetToken(c, ActivityLog)
}
