// Package seed loads the sample machines, issues, updates and maintenance
// records used for demos and local development.
package seed

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"machine-manual-backend/internal/lifecycle"
	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/store"
)

// QRWriter writes a machine's QR image.
type QRWriter interface {
	Write(baseURL, publicSlug string) error
}

type issueFixture struct {
	title       string
	description string
	reportedBy  string
	age         time.Duration
	status      model.IssueStatus
	update      *updateFixture
}

type updateFixture struct {
	note         string
	author       string
	statusChange model.IssueStatus
}

type maintenanceFixture struct {
	title       string
	description string
	performedBy string
	age         time.Duration
	nextDueIn   time.Duration
}

type machineFixture struct {
	in          store.NewMachine
	issues      []issueFixture
	maintenance []maintenanceFixture
}

const day = 24 * time.Hour

func str(s string) *string { return &s }

func fixtures() []machineFixture {
	return []machineFixture{
		{
			in: store.NewMachine{
				Name:         "Produktionslinie A",
				SerialNumber: str("PL-A-2023-001"),
				Location:     str("Halle 1, Platz 5"),
				Description:  str("Hauptproduktionslinie für Komponenten"),
			},
			issues: []issueFixture{
				{
					title:       "Hydraulikdruck zu niedrig",
					description: "Die Maschine zeigt einen Hydraulikdruckfehler an. Druck liegt bei 45 bar statt der erforderlichen 60 bar.",
					reportedBy:  "Hans Müller",
					age:         3 * time.Hour,
					update: &updateFixture{
						note:         "Hydraulikfilter wurde überprüft - ist sauber. Problem liegt vermutlich an der Pumpe.",
						author:       "Servicetechniker Tom",
						statusChange: model.IssueStatusInProgress,
					},
				},
				{
					title:       "Ungewöhnliche Geräusche aus Getriebe",
					description: "Seit heute Morgen sind klackende Geräusche aus dem Hauptgetriebe zu hören.",
					reportedBy:  "Maria Schmidt",
					age:         90 * time.Minute,
				},
				{
					title:       "Temperatursensor defekt",
					description: "Temperatursensor T1 zeigt unrealistische Werte an.",
					reportedBy:  "Klaus Weber",
					age:         2 * day,
					status:      model.IssueStatusClosed,
				},
			},
			maintenance: []maintenanceFixture{
				{
					title:       "Quartalsinspektion Q3/2024",
					description: "Routine-Quartalsinspektion: Ölwechsel, Filter getauscht, Verschleißteile geprüft",
					performedBy: "Wartungsteam Alpha",
					age:         7 * day,
					nextDueIn:   83 * day,
				},
				{
					title:       "Hydrauliköl-Wechsel",
					description: "Hydrauliköl ISO VG 46 gewechselt, Filters erneuert",
					performedBy: "Hydraulik-Service GmbH",
					age:         14 * day,
				},
			},
		},
		{
			in: store.NewMachine{
				Name:         "CNC Fräsmaschine DMU 50",
				SerialNumber: str("DMU50-2022-003"),
				Location:     str("Halle 2, Platz 12"),
				Description:  str("Hochpräzisions-CNC-Fräsmaschine für Prototypen"),
			},
			issues: []issueFixture{
				{
					title:       "Spindel vibriert bei hohen Drehzahlen",
					description: "Ab 8000 U/min entstehen starke Vibrationen an der Hauptspindel.",
					reportedBy:  "Stefan Fischer",
					age:         6 * time.Hour,
					status:      model.IssueStatusInProgress,
					update: &updateFixture{
						note:   "Spindellager wurden untersucht. Lager 2 zeigt Verschleißspuren. Ersatzteil bestellt.",
						author: "Mechaniker Paul",
					},
				},
				{
					title:       "Kühlmittelmangel",
					description: "Kühlmitteltank war leer, Produktion gestoppt.",
					reportedBy:  "Anna Kramer",
					age:         day,
					status:      model.IssueStatusClosed,
				},
			},
			maintenance: []maintenanceFixture{
				{
					title:       "Spindel-Justierung",
					description: "Spindel ausgerichtet und neu kalibriert nach Vibrationsproblemen",
					performedBy: "CNC-Spezialist Meyer",
					age:         3 * day,
					nextDueIn:   180 * day,
				},
				{
					title:       "Werkzeugwechsler kalibriert",
					description: "Automatischen Werkzeugwechsler neu kalibriert und getestet",
					performedBy: "Automatisierungstechnik Nord",
					age:         21 * day,
				},
			},
		},
	}
}

// Result summarizes a Load.
type Result struct {
	Machines    []model.Machine
	Issues      int
	Updates     int
	Maintenance int
	Skipped     bool
}

// Loader writes the sample data set.
type Loader struct {
	store  store.Store
	engine *lifecycle.Engine
	qr     QRWriter
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewLoader creates a Loader. qr may be nil to skip writing images.
func NewLoader(st store.Store, qr QRWriter, log logrus.FieldLogger) *Loader {
	return &Loader{
		store:  st,
		engine: lifecycle.NewEngine(st, log),
		qr:     qr,
		log:    log,
		now:    time.Now,
	}
}

// Load inserts the sample data unless the database already holds machines.
// Issues move through the lifecycle engine so closed_at and status updates
// follow the same rules as user input.
func (l *Loader) Load(ctx context.Context, baseURL string) (*Result, error) {
	existing, err := l.store.ListMachines(ctx, store.Page{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		l.log.Info("database already contains machines, skipping sample data")
		return &Result{Skipped: true}, nil
	}

	now := l.now()
	res := &Result{}
	for _, f := range fixtures() {
		m, err := l.store.CreateMachine(ctx, f.in)
		if err != nil {
			return res, errors.Wrapf(err, "failed to create machine %q", f.in.Name)
		}
		res.Machines = append(res.Machines, *m)
		if l.qr != nil {
			if err := l.qr.Write(baseURL, m.PublicSlug); err != nil {
				return res, errors.Wrapf(err, "failed to write qr code for %q", m.Name)
			}
		}

		for _, fi := range f.issues {
			if err := l.loadIssue(ctx, m.ID, fi, now, res); err != nil {
				return res, err
			}
		}
		for _, fm := range f.maintenance {
			entry := lifecycle.MaintenanceEntry{
				MachineID:   m.ID,
				Title:       fm.title,
				Description: str(fm.description),
				PerformedBy: fm.performedBy,
			}
			performedAt := now.Add(-fm.age)
			entry.PerformedAt = &performedAt
			if fm.nextDueIn > 0 {
				next := now.Add(fm.nextDueIn)
				entry.NextDueAt = &next
			}
			if _, err := l.engine.RecordMaintenance(ctx, entry); err != nil {
				return res, errors.Wrapf(err, "failed to record maintenance %q", fm.title)
			}
			res.Maintenance++
		}
		l.log.WithFields(logrus.Fields{"machine_id": m.ID, "slug": m.PublicSlug}).Infof("seeded %s", m.Name)
	}
	return res, nil
}

func (l *Loader) loadIssue(ctx context.Context, machineID int64, fi issueFixture, now time.Time, res *Result) error {
	reportedAt := now.Add(-fi.age)
	issue, err := l.engine.ReportIssue(ctx, lifecycle.IssueReport{
		MachineID:   machineID,
		Title:       fi.title,
		Description: str(fi.description),
		ReportedBy:  fi.reportedBy,
		ReportedAt:  &reportedAt,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to report issue %q", fi.title)
	}
	res.Issues++

	if fi.status != "" && fi.status != model.IssueStatusOpen {
		if _, err := l.engine.SetStatus(ctx, issue.ID, fi.status); err != nil {
			return errors.Wrapf(err, "failed to set status of %q", fi.title)
		}
	}
	if fi.update != nil {
		note := lifecycle.UpdateNote{IssueID: issue.ID, Note: fi.update.note, Author: fi.update.author}
		if fi.update.statusChange != "" {
			sc := fi.update.statusChange
			note.StatusChange = &sc
		}
		if _, _, err := l.engine.AddUpdate(ctx, note); err != nil {
			return errors.Wrapf(err, "failed to add update to %q", fi.title)
		}
		res.Updates++
	}
	return nil
}
