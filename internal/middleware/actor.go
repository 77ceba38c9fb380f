package middleware

import (
	"buildtrack/internal/models"
	"buildtrack/internal/workflow"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const actorKey = "Actor"

// InjectActor loads the session user with its role and stores the
// workflow actor on the request context. Downstream code takes the
// actor as an explicit value; no handler reaches into the session.
func InjectActor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				var user models.User
				if err := db.Preload("Role").First(&user, uid).Error; err == nil && user.IsActive {
					actor := workflow.ActorFromUser(&user)
					actor.IP = c.ClientIP()
					c.Set(actorKey, actor)
				}
			}
		}
		c.Next()
	}
}

// CurrentActor returns the actor injected for this request.
func CurrentActor(c *gin.Context) (workflow.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return workflow.Actor{}, false
	}
	actor, ok := v.(workflow.Actor)
	return actor, ok
}
