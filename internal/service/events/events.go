package events

import "context"

// EventServer — входная точка вебхуков мессенджера. cmd/server держит сервер через этот интерфейс
// и ничего не знает о конкретной платформе.
type EventServer interface {
	// Start занимает порт и возвращается сразу; ошибка означает, что слушать не удалось.
	// После отмены ctx сервер сам начинает остановку.
	Start(ctx context.Context) error

	// Stop перестаёт принимать запросы и ждёт, пока обработчики, уже получившие вебхук,
	// отправят ответ. Безопасен для повторного вызова.
	Stop(ctx context.Context) error

	// Addr — фактический адрес после Start (актуально для порта :0).
	Addr() string
}
