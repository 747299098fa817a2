package blog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-orm/pkg/models"
	"github.com/ajitpratap0/nebula-orm/pkg/schema"
	"github.com/ajitpratap0/nebula-orm/pkg/testutil"
)

func TestSchemasAreRegistered(t *testing.T) {
	for _, s := range Schemas() {
		got, ok := schema.Lookup(s.Name())
		require.True(t, ok, s.Name())
		assert.Same(t, s, got)
	}
	assert.Subset(t, schema.Names(), []string{"Blog", "Comment", "User"})
}

func TestUserTemplates(t *testing.T) {
	assert.Equal(t, "users", UserSchema.Table())
	assert.Equal(t, "id", UserSchema.PrimaryKey())
	assert.Equal(t,
		"insert into `users` (`email`,`passwd`,`admin`,`name`,`image`,`created_at`,`id`) values(?,?,?,?,?,?,?)",
		UserSchema.InsertSQL())
	assert.Equal(t,
		"update `users` set `email`=?,`passwd`=?,`admin`=?,`name`=?,`image`=?,`created_at`=? where `id`=?",
		UserSchema.UpdateSQL())
	assert.Contains(t, UserSchema.CreateTableSQL(), "`passwd` varchar(50)")
}

func TestCommentSchema(t *testing.T) {
	assert.Equal(t, []string{"blog_id", "user_id", "user_name", "user_image", "content", "created_at"}, CommentSchema.Fields())
	f, ok := BlogSchema.Field("content")
	require.True(t, ok)
	assert.Equal(t, schema.KindText, f.Kind)
}

func TestSaveUserFillsGeneratedDefaults(t *testing.T) {
	exec, mock := testutil.NewMockExecutor(t, testutil.TestLogger(t))
	users := models.NewTable(UserSchema, exec, testutil.TestLogger(t))

	u, err := users.New(map[string]any{
		"email":  "test@example.com",
		"passwd": "1234567890",
		"name":   "Test",
		"image":  "about:blank",
	})
	require.NoError(t, err)

	mock.ExpectExec(UserSchema.InsertSQL()).
		WithArgs("test@example.com", "1234567890", nil, "Test", "about:blank", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = u.Save(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	created, err := u.GetFloat64("created_at")
	require.NoError(t, err)
	assert.Greater(t, created, 1e9)
	id, err := u.GetString("id")
	require.NoError(t, err)
	assert.Len(t, id, 50)
	assert.False(t, u.IsSet("admin"))
}
