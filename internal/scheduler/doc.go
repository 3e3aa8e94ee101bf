// Package scheduler запускает периодические задания по cron-выражению.
//
// Структура:
//   - cron.go      — парсинг и проверка cron-выражений, расчёт следующего запуска
//   - scheduler.go — цикл Scheduler: ждать срабатывания, выполнить Job
//
// Компоновщик использует его для периодического экспорта изображения:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Name:   "export",
//	    Spec:   "@every 30s",
//	    Job:    func(ctx context.Context) error { return exporter.Export(path) },
//	    Logger: logger,
//	})
//	go sched.Run(ctx)
//
// Поддерживаются стандартные пять полей и дескрипторы (@hourly, @every 1m).
package scheduler
