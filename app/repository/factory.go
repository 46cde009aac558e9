package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory provides centralized access to all repositories
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns the repositories, initializing them once
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// Global factory instance
var (
	globalFactory *Factory
	factoryMutex  sync.RWMutex
)

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	globalFactory = NewFactory(db)
}

// GetGlobalFactory returns the global repository factory
func GetGlobalFactory() *Factory {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	return globalFactory
}

// GetRepositories is a convenience function to get repositories from the global factory
func GetRepositories() *Repositories {
	factory := GetGlobalFactory()
	if factory == nil {
		return nil
	}
	return factory.GetRepositories()
}
