// Package loadgen seeds a running planner with synthetic users, schedules
// them over HTTP and checks every returned plan against the placement rules.
package loadgen

import (
	"time"

	"github.com/morywal/CalendarApp/internal/domain/types"
)

// Defaults used by the plan-load command.
const (
	DefaultBaseURL            = "http://localhost:9080"
	DefaultUsers              = 100
	DefaultTasksPerUser       = 20
	DefaultCommitmentsPerUser = 4
	DefaultTimeout            = 30 * time.Second
)

const (
	workerChannelMultiplier = 2
	percentageMultiplier    = 100
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL            string        // Base URL of the service
	Users              int           // Number of synthetic users
	TasksPerUser       int           // Pending tasks created per user
	CommitmentsPerUser int           // Fixed commitments created per user
	Workers            int           // Number of concurrent users in flight
	Timeout            time.Duration // HTTP request timeout
	RequestsPerSecond  float64       // Request rate cap across workers; zero is unlimited
	Seed               uint64        // Seed of the fixture generator; zero picks one from the clock
	OutputFile         string        // Optional JSON report of every user's fixture and plan
	Verbose            bool          // Log each violation as it is found
}

// Fixture is the calendar generated for one user. IDs are filled in from
// the service's create responses.
type Fixture struct {
	UserID      string             `json:"user_id"`
	Commitments []types.Commitment `json:"commitments"`
	Tasks       []types.Task       `json:"tasks"`
}

// Stats holds run statistics.
type Stats struct {
	Users              int
	CommitmentsCreated int
	TasksCreated       int
	BlocksScheduled    int
	Unscheduled        int
	Skipped            int
	RequestsFailed     int
	Violations         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
