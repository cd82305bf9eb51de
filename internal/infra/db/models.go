package db

import "time"

type PackageRecordModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"uniqueIndex;not null"`
	CloudRegion  string    `gorm:"index;not null"`
	WorkloadType string    `gorm:"index;not null"`
	Location     string    `gorm:"not null"`
	Timestamp    float64   `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (PackageRecordModel) TableName() string { return "package_records" }
