package repository

import (
	"docqa-go/internal/model"

	"gorm.io/gorm"
)

// AgentRepository 接口定义了 Agent 的持久化操作。
type AgentRepository interface {
	Create(agent *model.Agent) error
	FindByID(id uint) (*model.Agent, error)
	FindByUserID(userID uint) ([]model.Agent, error)
	Update(agent *model.Agent) error
	Delete(id uint) error
}

type agentRepository struct {
	db *gorm.DB
}

// NewAgentRepository 创建一个新的 AgentRepository 实例。
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Create(agent *model.Agent) error {
	return r.db.Create(agent).Error
}

func (r *agentRepository) FindByID(id uint) (*model.Agent, error) {
	var agent model.Agent
	if err := r.db.First(&agent, id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) FindByUserID(userID uint) ([]model.Agent, error) {
	var agents []model.Agent
	err := r.db.Where("user_id = ?", userID).Find(&agents).Error
	return agents, err
}

func (r *agentRepository) Update(agent *model.Agent) error {
	return r.db.Save(agent).Error
}

func (r *agentRepository) Delete(id uint) error {
	return r.db.Delete(&model.Agent{}, id).Error
}
