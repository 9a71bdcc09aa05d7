package brkga

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrInvalidConfig некорректные параметры оптимизатора
var ErrInvalidConfig = errors.New("некорректная конфигурация BRKGA")

// Config параметры BRKGA
type Config struct {
	EliteFraction  float64 // доля элиты в популяции
	MutantFraction float64 // доля случайных мутантов в каждом поколении
	PopulationSize int
	MaxGenerations int
	ElitismBias    float64 // вероятность взять ген элитного родителя
	ChromosomeSize int
	Workers        int // 0 - по числу процессоров
}

// EliteCount количество элитных особей, floor(population * elite)
func (c Config) EliteCount() int {
	return int(float64(c.PopulationSize) * c.EliteFraction)
}

// MutantCount количество мутантов, floor(population * mutants)
func (c Config) MutantCount() int {
	return int(float64(c.PopulationSize) * c.MutantFraction)
}

// Validate собирает все нарушения сразу
func (c Config) Validate() error {
	var err error
	if c.PopulationSize < 2 {
		err = multierr.Append(err, fmt.Errorf("размер популяции %d меньше 2", c.PopulationSize))
	}
	if !(c.EliteFraction > 0 && c.EliteFraction < 1) {
		err = multierr.Append(err, fmt.Errorf("доля элиты %v вне (0, 1)", c.EliteFraction))
	}
	if !(c.MutantFraction >= 0 && c.MutantFraction < 1) {
		err = multierr.Append(err, fmt.Errorf("доля мутантов %v вне [0, 1)", c.MutantFraction))
	}
	if !(c.ElitismBias >= 0 && c.ElitismBias <= 1) {
		err = multierr.Append(err, fmt.Errorf("вероятность гена элиты %v вне [0, 1]", c.ElitismBias))
	}
	if c.MaxGenerations < 1 {
		err = multierr.Append(err, fmt.Errorf("количество поколений %d меньше 1", c.MaxGenerations))
	}
	if c.ChromosomeSize < 1 {
		err = multierr.Append(err, fmt.Errorf("размер хромосомы %d меньше 1", c.ChromosomeSize))
	}
	if c.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("количество воркеров %d отрицательное", c.Workers))
	}
	if c.PopulationSize >= 2 {
		elite := c.EliteCount()
		if elite < 1 || elite >= c.PopulationSize {
			err = multierr.Append(err, fmt.Errorf("элита из %d особей при популяции %d", elite, c.PopulationSize))
		}
		if elite+c.MutantCount() > c.PopulationSize {
			err = multierr.Append(err, fmt.Errorf("элита %d и мутанты %d не помещаются в популяцию %d",
				elite, c.MutantCount(), c.PopulationSize))
		}
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
