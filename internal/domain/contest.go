package domain

import (
	"fmt"
	"time"
)

// Status es el estado del ciclo de vida de un contest.
// Las transiciones son monótonas: upcoming → ongoing → finished.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusOngoing  Status = "ongoing"
	StatusFinished Status = "finished"
)

// Valid devuelve true si s es uno de los tres estados conocidos.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusOngoing, StatusFinished:
		return true
	}
	return false
}

// Contest es un prize pool: configuración inmutable + estado mutable.
type Contest struct {
	ID           string
	SerialNumber string
	Name         string

	// Configuración (fijada al crear, no cambia)
	EntryFee         float64
	MaxParticipants  int
	Duration         time.Duration
	PoolSize         float64
	Distribution     Distribution
	RecipientAddress string

	// Estado mutable
	Status              Status
	CurrentParticipants int
	StartedAt           *time.Time // se fija una sola vez, al pasar a ongoing
	EndedAt             *time.Time // se fija una sola vez, al pasar a finished
	CreatedAt           time.Time
}

// ContestConfig son los parámetros que el admin define al crear un contest.
type ContestConfig struct {
	SerialNumber     string
	Name             string
	EntryFee         float64
	MaxParticipants  int
	Duration         time.Duration
	PoolSize         float64
	Distribution     Distribution
	RecipientAddress string
}

// IsFull devuelve true si no caben más participantes.
func (c Contest) IsFull() bool {
	return c.CurrentParticipants >= c.MaxParticipants
}

// EndsAt devuelve el instante autoritativo de fin: start + duration.
// Devuelve zero time si el contest no ha empezado.
func (c Contest) EndsAt() time.Time {
	if c.StartedAt == nil {
		return time.Time{}
	}
	return c.StartedAt.Add(c.Duration)
}

// Expired es el predicado de fin que cualquier observador puede evaluar.
func (c Contest) Expired(now time.Time) bool {
	if c.Status != StatusOngoing || c.StartedAt == nil {
		return false
	}
	return !now.Before(c.EndsAt())
}

// Remaining devuelve el tiempo que falta para el fin (0 si ya expiró o no empezó).
func (c Contest) Remaining(now time.Time) time.Duration {
	if c.StartedAt == nil {
		return 0
	}
	d := c.EndsAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Validate comprueba la configuración de un contest antes de persistirlo.
// El calculador de premios no revalida nada; esta es la única barrera.
func (cfg ContestConfig) Validate() error {
	if cfg.SerialNumber == "" {
		return fmt.Errorf("%w: serial number is required", ErrInvalidContest)
	}
	if cfg.MaxParticipants <= 0 {
		return fmt.Errorf("%w: max participants must be > 0", ErrInvalidContest)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be > 0", ErrInvalidContest)
	}
	if cfg.EntryFee < 0 {
		return fmt.Errorf("%w: entry fee must be >= 0", ErrInvalidContest)
	}
	if cfg.PoolSize <= 0 {
		return fmt.Errorf("%w: pool size must be > 0", ErrInvalidContest)
	}
	return cfg.Distribution.Validate(cfg.PoolSize)
}
