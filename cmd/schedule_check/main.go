package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"payflow_app/internal/services"
)

func main() {
	// defined flags
	paymentID := flag.Uint("payment", 0, "Payment ID to check (mandatory)")
	dueStr := flag.String("due", "", "Due date (optional, format: 2006-01-02 15:04 or RFC3339; default: now)")
	recurring := flag.String("recurring", "", "Recurring interval rule (optional)")

	flag.Parse()

	if *paymentID == 0 {
		fmt.Println("Usage: schedule_check -payment <id> [-due <YYYY-MM-DD HH:MM>] [-recurring <rrule>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := services.InitDB(dsn)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	due := time.Now()
	if *dueStr != "" {
		due, err = time.Parse(time.RFC3339, *dueStr)
		if err != nil {
			due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
			if err != nil {
				log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
			}
		}
	}

	var recurringPtr *string
	if *recurring != "" {
		recurringPtr = recurring
	}

	poller := services.NewStatusPoller(db, nil)
	if err := poller.ScheduleAt(context.Background(), *paymentID, due, recurringPtr); err != nil {
		log.Fatalf("Failed to schedule status check: %v", err)
	}

	fmt.Printf("Scheduled status check for payment %d at %s\n", *paymentID, due)
}
