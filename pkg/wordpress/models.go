package wordpress

import "time"

// Post is a row of the <prefix>posts table. Only the columns muc reads or
// writes are mapped.
type Post struct {
	ID           uint64    `gorm:"column:ID;primaryKey;autoIncrement"`
	PostAuthor   uint64    `gorm:"column:post_author;default:0"`
	PostDate     time.Time `gorm:"column:post_date"`
	PostContent  string    `gorm:"column:post_content"`
	PostTitle    string    `gorm:"column:post_title"`
	PostStatus   string    `gorm:"column:post_status;size:20;default:publish"`
	PostName     string    `gorm:"column:post_name;size:200"`
	PostParent   uint64    `gorm:"column:post_parent;default:0"`
	GUID         string    `gorm:"column:guid;size:255"`
	PostType     string    `gorm:"column:post_type;size:20;default:post;index"`
	PostMimeType string    `gorm:"column:post_mime_type;size:100"`
}

// PostMeta is a row of the <prefix>postmeta table.
type PostMeta struct {
	MetaID    uint64 `gorm:"column:meta_id;primaryKey;autoIncrement"`
	PostID    uint64 `gorm:"column:post_id;index"`
	MetaKey   string `gorm:"column:meta_key;size:255;index"`
	MetaValue string `gorm:"column:meta_value"`
}

// Option is a row of the <prefix>options table.
type Option struct {
	OptionID    uint64 `gorm:"column:option_id;primaryKey;autoIncrement"`
	OptionName  string `gorm:"column:option_name;size:191;uniqueIndex"`
	OptionValue string `gorm:"column:option_value"`
	Autoload    string `gorm:"column:autoload;size:20;default:yes"`
}

// TermMeta is a row of the <prefix>termmeta table.
type TermMeta struct {
	MetaID    uint64 `gorm:"column:meta_id;primaryKey;autoIncrement"`
	TermID    uint64 `gorm:"column:term_id;index"`
	MetaKey   string `gorm:"column:meta_key;size:255;index"`
	MetaValue string `gorm:"column:meta_value"`
}

const (
	TablePosts    = "posts"
	TablePostMeta = "postmeta"
	TableOptions  = "options"
	TableTermMeta = "termmeta"
)

const (
	PostTypeAttachment = "attachment"

	StatusInherit = "inherit"
	StatusTrash   = "trash"

	MetaAttachedFile       = "_wp_attached_file"
	MetaAttachmentMetadata = "_wp_attachment_metadata"
	MetaTrashStatus        = "_wp_trash_meta_status"
	MetaTrashTime          = "_wp_trash_meta_time"
)
