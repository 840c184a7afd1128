package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/vidaplus/hms/internal/config"
	"github.com/vidaplus/hms/internal/domain/identity"
	"github.com/vidaplus/hms/internal/domain/scheduling"
	"github.com/vidaplus/hms/internal/domain/ward"
	"github.com/vidaplus/hms/internal/platform/auth"
	"github.com/vidaplus/hms/internal/platform/db"
)

// seedCmd populates a development database with an admin account, a handful
// of professionals with working-hour grids, fake patients, and one room per
// category with its beds. Not intended for production databases.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with development fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			professionals, _ := cmd.Flags().GetInt("professionals")
			patients, _ := cmd.Flags().GetInt("patients")
			password, _ := cmd.Flags().GetString("password")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.IsDev() {
				return fmt.Errorf("seed is only available when ENV=development")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			return runSeed(ctx, pool, professionals, patients, password)
		},
	}
	cmd.Flags().Int("professionals", 5, "Number of professionals to create")
	cmd.Flags().Int("patients", 20, "Number of patients to create")
	cmd.Flags().String("password", "vidaplus123", "Password for every seeded account")
	return cmd
}

func runSeed(ctx context.Context, pool *pgxpool.Pool, professionals, patients int, password string) error {
	txm := db.NewTxManager(pool)

	userRepo := identity.NewUserRepoPG(pool)
	patientRepo := identity.NewPatientRepoPG(pool)
	professionalRepo := identity.NewProfessionalRepoPG(pool)
	identitySvc := identity.NewService(userRepo, patientRepo, professionalRepo, txm, nil, 0)

	roomRepo := ward.NewRoomRepoPG(pool)
	bedRepo := ward.NewBedRepoPG(pool)
	wardSvc := ward.NewService(roomRepo, bedRepo, txm)

	schedulingSvc := scheduling.NewService(
		scheduling.NewScheduleRepoPG(pool),
		scheduling.NewUnavailabilityRepoPG(pool),
		scheduling.NewAppointmentRepoPG(pool),
		scheduling.NewRecordRepoPG(pool),
		patientRepo,
		professionalRepo,
		txm,
		scheduling.DefaultSlotMinutes,
	)

	faker := gofakeit.New(0)

	// Admin account. There is no API to create one, so insert it directly.
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &identity.User{
		Email:        "admin@vidaplus.local",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	fmt.Printf("admin: %s\n", admin.Email)

	specialties := []string{"Cardiology", "Dermatology", "Pediatrics", "Orthopedics", "General Practice"}
	weekdayGrid := []scheduling.ScheduleRowInput{
		{Weekday: 1, StartTime: "08:00", EndTime: "12:00", SlotMinutes: 30},
		{Weekday: 1, StartTime: "13:00", EndTime: "17:00", SlotMinutes: 30},
		{Weekday: 2, StartTime: "08:00", EndTime: "17:00", SlotMinutes: 30},
		{Weekday: 3, StartTime: "08:00", EndTime: "17:00", SlotMinutes: 30},
		{Weekday: 4, StartTime: "08:00", EndTime: "12:00", SlotMinutes: 30},
		{Weekday: 5, StartTime: "08:00", EndTime: "17:00", SlotMinutes: 60},
	}

	for i := 0; i < professionals; i++ {
		prof, err := identitySvc.CreateProfessional(ctx, identity.CreateProfessionalInput{
			Email:        fmt.Sprintf("prof%d@vidaplus.local", i+1),
			Password:     password,
			Name:         "Dr. " + faker.Name(),
			Specialty:    specialties[i%len(specialties)],
			Registration: fmt.Sprintf("CRM-%06d", 100000+i),
		})
		if err != nil {
			return fmt.Errorf("create professional: %w", err)
		}
		if _, err := schedulingSvc.SetWeeklySchedule(ctx, prof.ID, weekdayGrid); err != nil {
			return fmt.Errorf("set schedule for %s: %w", prof.Name, err)
		}
	}
	fmt.Printf("professionals: %d (prof1@vidaplus.local ...)\n", professionals)

	genders := []string{"MALE", "FEMALE"}
	for i := 0; i < patients; i++ {
		_, err := identitySvc.RegisterPatient(ctx, identity.RegisterPatientInput{
			Email:     fmt.Sprintf("patient%d@vidaplus.local", i+1),
			Password:  password,
			Name:      faker.Name(),
			CPF:       fmt.Sprintf("%011d", faker.Number(10000000000, 99999999999)),
			BirthDate: faker.DateRange(
				time.Date(1945, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
			).Format("2006-01-02"),
			Gender:    genders[i%2],
			Phone:     faker.Phone(),
		})
		if err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
	}
	fmt.Printf("patients: %d (patient1@vidaplus.local ...)\n", patients)

	roomPlans := []struct {
		number   string
		category string
		capacity int
	}{
		{"101", ward.CategoryMale, 4},
		{"102", ward.CategoryFemale, 4},
		{"201", ward.CategoryPediatric, 3},
		{"301", ward.CategoryIsolation, 1},
		{"401", ward.CategoryICUGeneral, 6},
	}
	bedCount := 0
	for _, plan := range roomPlans {
		rm, err := wardSvc.CreateRoom(ctx, ward.RoomInput{
			Number:   plan.number,
			Category: plan.category,
			Capacity: plan.capacity,
		})
		if err != nil {
			return fmt.Errorf("create room %s: %w", plan.number, err)
		}
		for b := 0; b < plan.capacity; b++ {
			_, err := wardSvc.CreateBed(ctx, ward.BedInput{
				RoomID: rm.ID,
				Label:  fmt.Sprintf("%s-%c", plan.number, 'A'+b),
			})
			if err != nil {
				return fmt.Errorf("create bed in room %s: %w", plan.number, err)
			}
			bedCount++
		}
	}
	fmt.Printf("rooms: %d, beds: %d\n", len(roomPlans), bedCount)

	return nil
}
