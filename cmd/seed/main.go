package main

import (
	"context"
	"log"
	"time"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/database"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type demoUser struct {
	mobile string
	name   string
	tier   entity.SubscriptionTier
}

// Development accounts. Log in with send-otp / verify-otp or the password below.
var demoUsers = []demoUser{
	{mobile: "9000000001", name: "Basic Demo", tier: entity.TierBasic},
	{mobile: "9000000002", name: "Pro Demo", tier: entity.TierPro},
}

const demoPassword = "password123"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}
	if cfg.App.Environment == "production" {
		log.Fatal("Error: refusing to seed demo accounts in production")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.LogQueries)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	factory := unitofwork.NewRepositoryFactory(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal("Error: Failed to hash password:", err)
	}
	hashStr := string(hash)

	log.Println("Seeding demo users...")
	for _, d := range demoUsers {
		if err := seedUser(ctx, factory, d, hashStr); err != nil {
			log.Printf("Error seeding %s: %v", d.mobile, err)
		}
	}
	log.Println("Seeding completed!")
}

func seedUser(ctx context.Context, factory unitofwork.RepositoryFactory, d demoUser, passwordHash string) error {
	uow := factory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByMobileNumber{MobileNumber: d.mobile})
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("User %s already exists, skipping...", d.mobile)
		return nil
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	now := time.Now()
	name := d.name
	user := &entity.User{
		Id:           uuid.New(),
		MobileNumber: d.mobile,
		Name:         &name,
		PasswordHash: &passwordHash,
		Tier:         d.tier,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if d.tier == entity.TierPro {
		status := "active"
		periodEnd := now.AddDate(1, 0, 0)
		user.SubscriptionStatus = &status
		user.CurrentPeriodEnd = &periodEnd
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return err
	}

	chatroom := &entity.Chatroom{
		Id:        uuid.New(),
		UserId:    user.Id,
		Title:     "Getting started",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uow.ChatroomRepository().Create(ctx, chatroom); err != nil {
		return err
	}

	question := &entity.Message{
		Id:         uuid.New(),
		ChatroomId: chatroom.Id,
		Content:    "What can you help me with?",
		Role:       entity.MessageRoleUser,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uow.MessageRepository().Create(ctx, question); err != nil {
		return err
	}
	answer := &entity.Message{
		Id:         uuid.New(),
		ChatroomId: chatroom.Id,
		Content:    "Ask me anything. Replies arrive a few seconds after you send a message.",
		Role:       entity.MessageRoleAssistant,
		ReplyToId:  &question.Id,
		CreatedAt:  now.Add(time.Second),
		UpdatedAt:  now.Add(time.Second),
	}
	if _, err := uow.MessageRepository().CreateReply(ctx, answer); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}
	log.Printf("Created %s user %s (%s)", d.tier, d.mobile, user.Id)
	return nil
}
