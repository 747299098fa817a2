// Package blog declares the record types of the sample blog application:
// users, the blogs they write and the comments left on them. The schemas are
// registered in the process-wide schema registry when the package is loaded.
package blog

import (
	"github.com/ajitpratap0/nebula-orm/pkg/schema"
)

// UserSchema is the compiled users table.
var UserSchema = schema.MustRegister(schema.Definition{
	Name:  "User",
	Table: "users",
	Attributes: []schema.Attribute{
		schema.Attr("id", idField()),
		schema.Attr("email", schema.StringField(schema.WithLength(50))),
		schema.Attr("passwd", schema.StringField(schema.WithLength(50))),
		schema.Attr("admin", schema.BooleanField()),
		schema.Attr("name", schema.StringField(schema.WithLength(50))),
		schema.Attr("image", schema.StringField(schema.WithLength(500))),
		schema.Attr("created_at", createdAtField()),
	},
})

// BlogSchema is the compiled blogs table.
var BlogSchema = schema.MustRegister(schema.Definition{
	Name:  "Blog",
	Table: "blogs",
	Attributes: []schema.Attribute{
		schema.Attr("id", idField()),
		schema.Attr("user_id", schema.StringField(schema.WithLength(50))),
		schema.Attr("user_name", schema.StringField(schema.WithLength(50))),
		schema.Attr("user_image", schema.StringField(schema.WithLength(500))),
		schema.Attr("name", schema.StringField(schema.WithLength(50))),
		schema.Attr("summary", schema.StringField(schema.WithLength(200))),
		schema.Attr("content", schema.TextField()),
		schema.Attr("created_at", createdAtField()),
	},
})

// CommentSchema is the compiled comments table.
var CommentSchema = schema.MustRegister(schema.Definition{
	Name:  "Comment",
	Table: "comments",
	Attributes: []schema.Attribute{
		schema.Attr("id", idField()),
		schema.Attr("blog_id", schema.StringField(schema.WithLength(50))),
		schema.Attr("user_id", schema.StringField(schema.WithLength(50))),
		schema.Attr("user_name", schema.StringField(schema.WithLength(50))),
		schema.Attr("user_image", schema.StringField(schema.WithLength(500))),
		schema.Attr("content", schema.TextField()),
		schema.Attr("created_at", createdAtField()),
	},
})

// Schemas returns the blog schemas in dependency order.
func Schemas() []*schema.Schema {
	return []*schema.Schema{UserSchema, BlogSchema, CommentSchema}
}

func idField() *schema.Field {
	return schema.StringField(schema.PrimaryKey(), schema.WithDefaultFunc(schema.NewID), schema.WithLength(50))
}

func createdAtField() *schema.Field {
	return schema.FloatField(schema.WithDefaultFunc(schema.NowUnix))
}
