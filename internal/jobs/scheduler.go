// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасный аудит эскроу
// и ежедневный дайджест доски в чат.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/board-bot/internal/features/board"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron          *cron.Cron
	boardService  *board.Service
	boardChatID   int64
	digestEnabled bool
	sendFunc      func(chatID int64, text string)
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(boardService *board.Service, boardChatID int64, digestEnabled bool, sendFunc func(chatID int64, text string)) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:          c,
		boardService:  boardService,
		boardChatID:   boardChatID,
		digestEnabled: digestEnabled,
		sendFunc:      sendFunc,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ежечасный аудит эскроу: сверяем удержанные залоги с висящими
	// уведомлениями. Ничего не чиним, только сигнализируем в лог.
	s.cron.AddFunc("0 * * * *", func() {
		mismatches, err := s.boardService.AuditEscrow(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка аудита эскроу")
			return
		}
		if mismatches > 0 {
			log.WithField("mismatches", mismatches).Error("[CRON] Расхождение эскроу с висящими залогами")
		} else {
			log.Debug("[CRON] Аудит эскроу: расхождений нет")
		}
	})

	// Ежедневный дайджест доски в 09:00 по Москве
	if s.digestEnabled {
		s.cron.AddFunc("0 9 * * *", func() {
			log.Info("[CRON] Дайджест доски")
			s.sendDigest(ctx)
		})
	}

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// sendDigest собирает и отправляет дайджест последних уведомлений.
func (s *Scheduler) sendDigest(ctx context.Context) {
	list, err := s.boardService.Recent(ctx, 5)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сборки дайджеста")
		return
	}
	if len(list) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString("🗞 Дайджест доски за сутки\n\n")
	for _, n := range list {
		sb.WriteString(fmt.Sprintf("#%d [%s] ✅ %d / ❌ %d\n",
			n.ID, n.Category.Title(), n.ValidationCount, n.RejectionCount))
	}
	sb.WriteString("\nПодробнее: !уведомление <id>")

	s.sendFunc(s.boardChatID, sb.String())
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
