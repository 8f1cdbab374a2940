package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Room is a virtual classroom grouping tests, assignments, announcements
// and memberships. Students join with the student code; co-teachers join
// with the teacher code.
type Room struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Name        string  `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	TeacherName string  `json:"teacher_name" gorm:"size:100"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`

	StudentCode string `json:"student_code" gorm:"uniqueIndex;not null;size:12"`
	TeacherCode string `json:"teacher_code" gorm:"uniqueIndex;not null;size:12"`

	OwnerID         string         `json:"owner_id" gorm:"not null;size:255;index"`
	CollaboratorIDs datatypes.JSON `json:"collaborator_ids" gorm:"type:jsonb"` // []string

	IsArchived bool `json:"is_archived" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Memberships []RoomMembership `json:"memberships,omitempty" gorm:"foreignKey:RoomID"`
	Owner       User             `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}

func (Room) TableName() string {
	return "rooms"
}

type RoomMembership struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	RoomID string `json:"room_id" gorm:"not null;size:36;index:idx_membership_room_user,unique"`
	UserID string `json:"user_id" gorm:"not null;size:255;index:idx_membership_room_user,unique"`

	UserEmail string   `json:"user_email" gorm:"size:255"`
	UserName  string   `json:"user_name" gorm:"size:100"`
	Role      UserRole `json:"role" gorm:"not null;default:student" validate:"omitempty,user_role"`

	CreatedAt time.Time `json:"created_at"`

	Room Room `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (RoomMembership) TableName() string {
	return "room_memberships"
}

type Announcement struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	RoomID string `json:"room_id" gorm:"not null;size:36;index"`

	Title   string `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Content string `json:"content" gorm:"not null;type:text" validate:"required"`

	AuthorID   string `json:"author_id" gorm:"not null;size:255;index"`
	AuthorName string `json:"author_name" gorm:"size:100"`

	AllowComments bool `json:"allow_comments" gorm:"default:true"`
	AllowLikes    bool `json:"allow_likes" gorm:"default:true"`

	Likes    datatypes.JSON `json:"likes" gorm:"type:jsonb"`    // []string user ids
	Comments datatypes.JSON `json:"comments" gorm:"type:jsonb"` // []AnnouncementComment

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Room Room `json:"room,omitempty" gorm:"foreignKey:RoomID"`
}

func (Announcement) TableName() string {
	return "announcements"
}

type AnnouncementComment struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
