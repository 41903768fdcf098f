package dto

import "github.com/noah-isme/sma-academic-transition/internal/models"

// AcademicYearResponse is the read model of the academic year configuration.
type AcademicYearResponse struct {
	models.AcademicYearConfig
	Configured bool `json:"configured"`
}
