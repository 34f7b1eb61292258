package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/roster-backend/internal/config"
	"github.com/stemsi/roster-backend/internal/database"
	"github.com/stemsi/roster-backend/internal/logger"
	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
	"github.com/stemsi/roster-backend/internal/service"
)

var defaultMajors = []string{
	"Computer Science",
	"Information Systems",
	"Electrical Engineering",
	"Mathematics",
}

var sampleNames = []string{
	"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
	"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	"Hendra Gunawan", "Ika Sari", "Lukman Hakim", "Maya Septiana", "Nanda Pratama",
	"Oki Setiana", "Putri Dian", "Rafi Ahmad", "Toni Setiawan", "Wahyu Hidayat",
}

func main() {
	var (
		adminName string
		csvPath   string
		firstID   int
		guestName string
		guestPass string
	)
	flag.StringVar(&adminName, "admin", "admin", "Username of the administrator the seed is attributed to")
	flag.StringVar(&csvPath, "csv", "", "Optional roster CSV to import after the defaults")
	flag.IntVar(&firstID, "first-id", 1001, "Student id of the first sample student")
	flag.StringVar(&guestName, "guest", "guest", "Username of the read-only account to create")
	flag.StringVar(&guestPass, "guest-password", "", "Password for the guest account (skipped when empty)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	identities := repository.NewIdentityRepository(pool)

	identityService := service.NewIdentityService(identities, service.NewAuthService(cfg, nil), nil, log)

	guard := service.NewGuard()
	audit := service.NewAuditService(store, guard, nil, log)
	majorService := service.NewMajorService(store, guard, audit, log)
	studentService := service.NewStudentService(store, guard, audit, log)
	importService := service.NewImportService(audit, service.ImportOptions{
		SkipHeader:  cfg.ImportSkipHeader,
		MaxExamples: cfg.ImportMaxRejectExamples,
	}, log)

	admin, err := identities.GetIdentityByUsername(ctx, adminName)
	if err != nil {
		log.Fatal().Err(err).Str("username", adminName).Msg("Administrator not found; run create-admin first")
	}
	if admin.Role != model.RoleAdmin {
		log.Fatal().Str("username", adminName).Str("role", admin.Role.String()).Msg("Seed identity is not an administrator")
	}

	if guestPass != "" {
		fmt.Println("=== Seeding Guest Account ===")
		guest, err := identityService.Bootstrap(ctx, guestName, guestPass, model.RoleGuest)
		switch {
		case errors.Is(err, service.ErrDuplicateUsername):
			fmt.Printf("Identity %q already exists, skipping\n", guestName)
		case err != nil:
			log.Fatal().Err(err).Str("username", guestName).Msg("Failed to create guest")
		default:
			fmt.Printf("Created guest '%s' with ID: %d\n", guest.Username, guest.ID)
		}
	}

	fmt.Println("=== Seeding Majors ===")
	var majors []model.Major
	for _, name := range defaultMajors {
		m, err := majorService.Create(ctx, admin, name)
		if errors.Is(err, service.ErrDuplicateName) {
			fmt.Printf("Major %q already exists, skipping\n", name)
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("major", name).Msg("Failed to create major")
		}
		majors = append(majors, *m)
	}
	if len(majors) == 0 {
		existing, err := majorService.List(ctx, admin)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list majors")
		}
		majors = existing
	}

	fmt.Printf("=== Seeding %d Students ===\n", len(sampleNames))
	created := 0
	for i, name := range sampleNames {
		req := model.StudentRequest{
			ID:      firstID + i,
			Name:    name,
			MajorID: majors[i%len(majors)].ID,
		}
		if _, err := studentService.Create(ctx, admin, req); err != nil {
			if errors.Is(err, service.ErrDuplicateID) {
				continue
			}
			log.Fatal().Err(err).Int("student_id", req.ID).Msg("Failed to create student")
		}
		created++
	}
	fmt.Printf("Created %d students\n", created)

	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", csvPath).Msg("Failed to open CSV")
		}
		defer f.Close()

		report, err := importService.Import(ctx, admin, f, importService.Defaults())
		if err != nil {
			log.Fatal().Err(err).Msg("Import failed")
		}
		fmt.Printf("Imported %d students, rejected %d, skipped %d\n", report.Added, report.RejectedCount, report.Skipped)
		for _, row := range report.Rejected {
			fmt.Printf("  line %d %s: %s (%s)\n", row.Line, row.Reason, row.Message, row.Raw)
		}
	}

	fmt.Println("Seeding complete")
}
