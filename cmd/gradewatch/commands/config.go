package commands

import (
	"errors"
	"fmt"
	"gradewatch/internal/notify"
	"gradewatch/internal/record"
	"gradewatch/internal/scrapers/ctt"
	"gradewatch/internal/scrapers/syllabus"
	"gradewatch/internal/store/gcsdoc"
	"gradewatch/internal/store/sheets"
	"gradewatch/internal/store/sqlitestore"
	"gradewatch/lib/configutil"
	"os"
)

type EmailConfig struct {
	Smtp  *notify.SmtpConfig  `json:"smtp"`
	Brevo *notify.BrevoConfig `json:"brevo"`
}

type RecordStoreConfig struct {
	Sheets *sheets.Config      `json:"sheets"`
	Sqlite *sqlitestore.Config `json:"sqlite"`
}

type ContentStoreConfig struct {
	Gcs    *gcsdoc.Config      `json:"gcs"`
	Sqlite *sqlitestore.Config `json:"sqlite"`
}

type GradesConfig struct {
	Portal ctt.Config        `json:"portal"`
	Store  RecordStoreConfig `json:"store"`
	// Columns overrides the default spreadsheet layout.
	Columns    map[string]int `json:"columns"`
	Recipients []string       `json:"recipients" validate:"required,min=1,dive,email"`
	Subject    string         `json:"subject"`
}

type ContentConfig struct {
	Portal     syllabus.Config    `json:"portal"`
	Store      ContentStoreConfig `json:"store"`
	Recipients []string           `json:"recipients" validate:"required,min=1,dive,email"`
	Subject    string             `json:"subject"`
	// Bootstrap lets the first run start from an empty state instead of
	// failing on a missing one.
	Bootstrap bool `json:"bootstrap"`
}

// ScheduleConfig holds the cron specs of the daemon, a domain without a
// spec is not scheduled.
type ScheduleConfig struct {
	Grades  string `json:"grades"`
	Content string `json:"content"`
}

type Config struct {
	Timezone          string         `json:"timezone"`
	Email             EmailConfig    `json:"email"`
	FailureRecipients []string       `json:"failure_recipients" validate:"dive,email"`
	FailureSubject    string         `json:"failure_subject"`
	Grades            *GradesConfig  `json:"grades"`
	Content           *ContentConfig `json:"content"`
	Schedule          ScheduleConfig `json:"schedule"`
}

const (
	defaultGradesSubject  = "Có cập nhật điểm!"
	defaultContentSubject = "New lessons were posted"
	defaultFailureSubject = "gradewatch check failed"
)

func (c Config) withDefaults() Config {
	if c.FailureSubject == "" {
		c.FailureSubject = defaultFailureSubject
	}
	if c.Grades != nil && c.Grades.Subject == "" {
		c.Grades.Subject = defaultGradesSubject
	}
	if c.Content != nil && c.Content.Subject == "" {
		c.Content.Subject = defaultContentSubject
	}
	return c
}

// Schema returns the configured column layout, or the default one.
func (c GradesConfig) Schema() (record.Schema, error) {
	if len(c.Columns) == 0 {
		return record.NewSchema(record.GradeColumns)
	}
	return record.NewSchema(c.Columns)
}

func (c RecordStoreConfig) validate() error {
	if (c.Sheets == nil) == (c.Sqlite == nil) {
		return fmt.Errorf("grades.store needs exactly one of sheets or sqlite")
	}
	return nil
}

func (c ContentStoreConfig) validate() error {
	if (c.Gcs == nil) == (c.Sqlite == nil) {
		return fmt.Errorf("content.store needs exactly one of gcs or sqlite")
	}
	return nil
}

func (c EmailConfig) validate() error {
	if c.Smtp != nil && c.Brevo != nil {
		return fmt.Errorf("email needs at most one of smtp or brevo")
	}
	return nil
}

// LoadConfig reads the config file (and its .local override) and checks the
// constraints struct tags cannot express.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config file %s does not exist", path)
	}
	if err != nil {
		return Config{}, err
	}

	err = config.Email.validate()
	if err != nil {
		return Config{}, err
	}
	if config.Grades == nil && config.Content == nil {
		return Config{}, fmt.Errorf("neither grades nor content is configured")
	}
	if config.Grades != nil {
		err = config.Grades.Store.validate()
		if err != nil {
			return Config{}, err
		}
		_, err = config.Grades.Schema()
		if err != nil {
			return Config{}, fmt.Errorf("grades.columns: %w", err)
		}
	}
	if config.Content != nil {
		err = config.Content.Store.validate()
		if err != nil {
			return Config{}, err
		}
	}
	return config.withDefaults(), nil
}
