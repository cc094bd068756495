package models

// TechStack is a lookup value tagging tasks and employee skills.
type TechStack struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"unique;not null"`
}

func (TechStack) TableName() string {
	return "tech_stacks"
}
