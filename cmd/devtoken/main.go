// Команда devtoken выпускает access токен для локальной проверки API:
//
//	go run ./cmd/devtoken -role vp
package main

import (
	"flag"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/feedback-escalation/internal/config"
	"github.com/ignatzorin/feedback-escalation/internal/service"
)

func main() {
	role := flag.String("role", "dm", "роль пользователя: ceo, vp, director, dm или любая другая")
	user := flag.String("user", "", "UUID пользователя, по умолчанию случайный")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("devtoken: ошибка загрузки конфигурации: %v", err)
	}
	if cfg.IsProduction() {
		logrus.Fatal("devtoken: выпуск токенов запрещён в production")
	}

	userID := uuid.New()
	if *user != "" {
		if userID, err = uuid.Parse(*user); err != nil {
			logrus.Fatalf("devtoken: некорректный UUID пользователя: %v", err)
		}
	}

	token, expiresAt, err := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL).
		Issue(service.Identity{UserID: userID, Role: *role})
	if err != nil {
		logrus.Fatalf("devtoken: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"role":       *role,
		"expires_at": expiresAt,
	}).Info("devtoken: токен выпущен")
	fmt.Println(token)
}
