package database

import (
	"fmt"
	"log"

	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	if err := seedForkliftCourse(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate runs AutoMigrate for every persisted model. Shared with the
// sqlite-backed test helpers.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Module{},
		&model.QuizQuestion{},
		&model.Enrollment{},
		&model.ModuleProgress{},
		&model.Organization{},
		&model.OrgMembership{},
		&model.SeatAllocation{},
		&model.Invitation{},
		&model.Certificate{},
	)
}

// seedForkliftCourse installs the stock forklift operator course on an
// empty database so a fresh install is immediately usable.
func seedForkliftCourse(db *gorm.DB) error {
	var count int64
	db.Model(&model.Course{}).Count(&count)
	if count > 0 {
		return nil
	}

	q := func(prompt string, choices []string, correct int) model.QuizQuestion {
		return model.QuizQuestion{Prompt: prompt, Choices: choices, CorrectIndex: correct}
	}

	course := &model.Course{
		Slug:        "forklift",
		Title:       "Forklift Operator Certification",
		Description: "OSHA 29 CFR 1910.178 powered industrial truck operator training.",
		Modules: []model.Module{
			{
				Order: 1, Title: "Pre-Operation Inspection", Kind: model.KindHybrid,
				GuideRef: "guides/pre-operation", VideoRef: "videos/pre-operation", GameRef: "games/inspection-walkaround",
				Questions: []model.QuizQuestion{
					q("When must a forklift be inspected?", []string{"Weekly", "Before each shift", "Monthly", "Only after an incident"}, 1),
					q("A leaking hydraulic hose found during inspection means:", []string{"Operate slowly", "Tag out the truck", "Top up fluid and continue", "Report it at end of shift"}, 1),
				},
			},
			{
				Order: 2, Title: "Stability & the Load Triangle", Kind: model.KindHybrid,
				GuideRef: "guides/stability", VideoRef: "videos/stability", GameRef: "games/load-balance",
				Questions: []model.QuizQuestion{
					q("The stability triangle is formed by:", []string{"The two front wheels and rear axle pivot", "All four wheels", "The forks and counterweight", "The mast and overhead guard"}, 0),
					q("Raising a load while the mast is tilted forward:", []string{"Improves visibility", "Moves the combined center of gravity forward", "Has no effect", "Increases rated capacity"}, 1),
				},
			},
			{
				Order: 3, Title: "Safe Travel & Pedestrians", Kind: model.KindVideo,
				GuideRef: "guides/safe-travel", VideoRef: "videos/safe-travel",
				Questions: []model.QuizQuestion{
					q("When traveling with a load, the forks should be:", []string{"Raised to eye level", "4-6 inches off the floor, tilted back", "Level with the floor", "Tilted forward"}, 1),
				},
			},
			{
				Order: 4, Title: "Refueling & Charging", Kind: model.KindGame,
				GuideRef: "guides/refueling", GameRef: "games/charging-sequence",
				Questions: []model.QuizQuestion{
					q("Battery charging areas must have:", []string{"Carpeted floors", "Eyewash facilities and ventilation", "No signage", "Open flames for gas detection"}, 1),
				},
			},
			{
				Order: 5, Title: "Final Knowledge Check", Kind: model.KindQuizOnly,
				Questions: []model.QuizQuestion{
					q("Operator certification must be renewed at least every:", []string{"Year", "Two years", "Three years", "Five years"}, 2),
					q("An operator must be re-evaluated after:", []string{"A near-miss or accident", "Every lunch break", "Each load", "Nothing, evaluation is one-time"}, 0),
				},
			},
		},
	}

	if err := model.ValidateCourse(course); err != nil {
		return fmt.Errorf("seed course invalid: %w", err)
	}

	course.Published = true
	return db.Create(course).Error
}
