package groups

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/grupi/grupi-server/pkg/grupi/models"
	"gorm.io/gorm"
)

func createGroupWithMember(t *testing.T, db *gorm.DB, admin, member models.User) models.ProjectGroup {
	var profile models.Profile
	if err := db.Where("user_id = ?", admin.ID).First(&profile).Error; err != nil {
		t.Fatalf("Failed to load admin profile: %v", err)
	}
	group := models.ProjectGroup{
		Name:                 fmt.Sprintf("Grupo de %d", admin.ID),
		CreatorID:            admin.ID,
		IntegrativeProjectID: profile.IntegrativeProjectID,
		CourseID:             profile.CourseID,
		TrackID:              profile.TrackID,
		Moderated:            true,
	}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	db.Create(&models.Membership{UserID: admin.ID, GroupID: group.ID, Role: models.RoleAdmin})
	db.Create(&models.Membership{UserID: member.ID, GroupID: group.ID, Role: models.RoleMember})
	return group
}

func TestRemoveMemberByAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")
	group := createGroupWithMember(t, db, admin, member)

	resp := doRequest(router, "DELETE", fmt.Sprintf("/groups/%d/members/%d", group.ID, member.ID), nil, admin)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.Membership{}).Where("user_id = ?", member.ID).Count(&count)
	if count != 0 {
		t.Error("Membership should have been removed")
	}
}

func TestRemoveMemberSelf(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")
	group := createGroupWithMember(t, db, admin, member)

	resp := doRequest(router, "DELETE", fmt.Sprintf("/groups/%d/members/%d", group.ID, member.ID), nil, member)
	if resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRemoveAdminForbidden(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")
	group := createGroupWithMember(t, db, admin, member)

	// Not even the admin can remove the admin membership.
	for _, actor := range []models.User{admin, member} {
		resp := doRequest(router, "DELETE", fmt.Sprintf("/groups/%d/members/%d", group.ID, admin.ID), nil, actor)
		if resp.Code != http.StatusForbidden {
			t.Errorf("Expected status 403 for actor %d, got %d: %s", actor.ID, resp.Code, resp.Body.String())
		}
	}

	var count int64
	db.Model(&models.Membership{}).Where("user_id = ?", admin.ID).Count(&count)
	if count != 1 {
		t.Error("Admin membership should still exist")
	}
}

func TestRemoveMemberByAnotherMember(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")
	other := createTestUser(t, db, "other@univesp.br")
	group := createGroupWithMember(t, db, admin, member)
	db.Create(&models.Membership{UserID: other.ID, GroupID: group.ID, Role: models.RoleMember})

	resp := doRequest(router, "DELETE", fmt.Sprintf("/groups/%d/members/%d", group.ID, member.ID), nil, other)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRemoveMemberByOutsider(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")
	outsider := createTestUser(t, db, "outsider@univesp.br")
	group := createGroupWithMember(t, db, admin, member)

	resp := doRequest(router, "DELETE", fmt.Sprintf("/groups/%d/members/%d", group.ID, member.ID), nil, outsider)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListMembers(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")
	group := createGroupWithMember(t, db, admin, member)

	resp := doRequest(router, "GET", fmt.Sprintf("/groups/%d/members", group.ID), nil, member)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
}
