package plan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProgramStatusActive   = "active"
	ProgramStatusArchived = "archived"
)

// Program is the currently issued plan snapshot for a user. Planned sessions and
// meals repeat weekly from StartDate.
type Program struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string    `gorm:"column:name;not null" json:"name"`
	Status string    `gorm:"column:status;not null;index" json:"status"`

	StartDate            string  `gorm:"column:start_date;size:10;not null" json:"start_date"`
	NextReassessmentDate string  `gorm:"column:next_reassessment_date;size:10" json:"next_reassessment_date"`
	LastDeloadDate       *string `gorm:"column:last_deload_date;size:10" json:"last_deload_date,omitempty"`

	TDEE           int     `gorm:"column:tdee;not null" json:"tdee"`
	TargetCalories int     `gorm:"column:target_calories;not null" json:"target_calories"`
	ProteinG       float64 `gorm:"column:protein_g;not null" json:"protein_g"`
	CarbsG         float64 `gorm:"column:carbs_g;not null" json:"carbs_g"`
	FatG           float64 `gorm:"column:fat_g;not null" json:"fat_g"`

	WeeklyVolumeSets int            `gorm:"column:weekly_volume_sets;not null" json:"weekly_volume_sets"`
	VolumeByMuscle   map[string]int `gorm:"column:volume_by_muscle;serializer:json" json:"volume_by_muscle"`

	Version   int            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Program) TableName() string { return "program" }

func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// MacroSplit is a gram-level macro target.
type MacroSplit struct {
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

func (p *Program) Macros() MacroSplit {
	return MacroSplit{ProteinG: p.ProteinG, CarbsG: p.CarbsG, FatG: p.FatG}
}
