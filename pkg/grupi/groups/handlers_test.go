package groups

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/grupi/grupi-server/pkg/grupi/auth"
	"github.com/grupi/grupi-server/pkg/grupi/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	seedAcademics(t, db)
	return db
}

func seedAcademics(t *testing.T, db *gorm.DB) {
	track := models.Track{Name: "Computação"}
	if err := db.Create(&track).Error; err != nil {
		t.Fatalf("Failed to seed track: %v", err)
	}
	course := models.Course{Name: "Tecnologia da Informação", TrackID: track.ID}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("Failed to seed course: %v", err)
	}
	district := models.District{Number: 1, Name: "São Paulo - Capital"}
	if err := db.Create(&district).Error; err != nil {
		t.Fatalf("Failed to seed district: %v", err)
	}
	campus := models.Campus{Name: "Vila Mariana", DistrictID: district.ID}
	if err := db.Create(&campus).Error; err != nil {
		t.Fatalf("Failed to seed campus: %v", err)
	}
	pi := models.IntegrativeProject{Number: 1}
	if err := db.Create(&pi).Error; err != nil {
		t.Fatalf("Failed to seed integrative project: %v", err)
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:           email,
		PasswordHash:    hash,
		FirstName:       "Test",
		LastName:        "User",
		IsActive:        true,
		IsEmailVerified: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	var course models.Course
	db.First(&course)
	var campus models.Campus
	db.First(&campus)
	var pi models.IntegrativeProject
	db.First(&pi)

	profile := models.Profile{
		UserID:               user.ID,
		IntegrativeProjectID: pi.ID,
		CourseID:             course.ID,
		TrackID:              course.TrackID,
		CampusID:             &campus.ID,
		DistrictID:           &campus.DistrictID,
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}
	return user
}

func createTestTags(t *testing.T, db *gorm.DB, n int) []uint {
	ids := make([]uint, n)
	for i := 0; i < n; i++ {
		tag := models.Tag{Name: fmt.Sprintf("tag-%d", i)}
		if err := db.Create(&tag).Error; err != nil {
			t.Fatalf("Failed to create tag: %v", err)
		}
		ids[i] = tag.ID
	}
	return ids
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)

	api := r.Group("", auth.AuthMiddleware())
	groups := api.Group("/groups")
	handler.RegisterRoutes(groups)
	handler.RegisterMemberRoutes(groups)
	handler.RegisterSelfRoutes(api)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email)
	return "Bearer " + token
}

func doRequest(router *gin.Engine, method, path string, body interface{}, user models.User) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		buf = bytes.NewBuffer(jsonBody)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateGroup(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "creator@univesp.br")

	resp := doRequest(router, "POST", "/groups", CreateGroupRequest{
		Name:        "Grupo Zeta",
		Description: "A test group",
	}, user)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Name != "Grupo Zeta" {
		t.Errorf("Expected name 'Grupo Zeta', got %s", response.Name)
	}
	if !response.Moderated {
		t.Error("Expected group to default to moderated")
	}

	// Exactly one admin membership exists and it belongs to the creator.
	var memberships []models.Membership
	db.Where("group_id = ?", response.ID).Find(&memberships)
	if len(memberships) != 1 {
		t.Fatalf("Expected 1 membership, got %d", len(memberships))
	}
	if memberships[0].UserID != user.ID || memberships[0].Role != models.RoleAdmin {
		t.Errorf("Expected admin membership for creator, got user %d role %s", memberships[0].UserID, memberships[0].Role)
	}
}

func TestCreateGroupSnapshotsProfile(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "creator@univesp.br")

	resp := doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Snapshot"}, user)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var group models.ProjectGroup
	db.Where("name = ?", "Grupo Snapshot").First(&group)
	var profile models.Profile
	db.Where("user_id = ?", user.ID).First(&profile)

	if group.CourseID != profile.CourseID || group.TrackID != profile.TrackID {
		t.Error("Group academic fields should be copied from the creator's profile")
	}

	// Changing the profile afterwards must not touch the group.
	track := models.Track{Name: "Licenciatura"}
	db.Create(&track)
	newCourse := models.Course{Name: "Pedagogia", TrackID: track.ID}
	db.Create(&newCourse)
	db.Model(&profile).Updates(map[string]interface{}{"course_id": newCourse.ID, "track_id": track.ID})

	var after models.ProjectGroup
	db.First(&after, group.ID)
	if after.CourseID != group.CourseID {
		t.Error("Group snapshot must not follow later profile changes")
	}
}

func TestCreateSecondGroupFails(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "creator@univesp.br")

	resp := doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Um"}, user)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Dois"}, user)
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}

	// No partial state: the second group must not exist.
	var count int64
	db.Model(&models.ProjectGroup{}).Where("name = ?", "Grupo Dois").Count(&count)
	if count != 0 {
		t.Error("Second group should not have been created")
	}
}

func TestCreateGroupTagCap(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "creator@univesp.br")
	tagIDs := createTestTags(t, db, 6)

	resp := doRequest(router, "POST", "/groups", CreateGroupRequest{
		Name:   "Grupo Tags",
		TagIDs: tagIDs,
	}, user)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.ProjectGroup{}).Count(&count)
	if count != 0 {
		t.Error("Group should not have been created with too many tags")
	}
}

func TestUpdateGroupTagCap(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "creator@univesp.br")
	tagIDs := createTestTags(t, db, 6)

	resp := doRequest(router, "POST", "/groups", CreateGroupRequest{
		Name:   "Grupo Tags",
		TagIDs: tagIDs[:5],
	}, user)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var group models.ProjectGroup
	db.Where("name = ?", "Grupo Tags").First(&group)

	six := tagIDs
	resp = doRequest(router, "PATCH", fmt.Sprintf("/groups/%d", group.ID), UpdateGroupRequest{TagIDs: &six}, user)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}

	// Still exactly five tags.
	count := db.Model(&group).Association("Tags").Count()
	if count != 5 {
		t.Errorf("Expected 5 tags after rejected update, got %d", count)
	}
}

func TestUpdateGroupRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")

	resp := doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Alfa"}, admin)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var group models.ProjectGroup
	db.Where("name = ?", "Grupo Alfa").First(&group)
	db.Create(&models.Membership{UserID: member.ID, GroupID: group.ID, Role: models.RoleMember})

	resp = doRequest(router, "PATCH", fmt.Sprintf("/groups/%d", group.ID), UpdateGroupRequest{Name: "Renamed"}, member)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDeleteGroupCascades(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")
	requester := createTestUser(t, db, "requester@univesp.br")

	resp := doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Beta"}, admin)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var group models.ProjectGroup
	db.Where("name = ?", "Grupo Beta").First(&group)
	db.Create(&models.Membership{UserID: member.ID, GroupID: group.ID, Role: models.RoleMember})
	db.Create(&models.JoinRequest{UserID: requester.ID, GroupID: group.ID, Status: models.RequestPending})

	resp = doRequest(router, "DELETE", fmt.Sprintf("/groups/%d", group.ID), nil, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var memberships, requests, groupsLeft int64
	db.Model(&models.Membership{}).Where("group_id = ?", group.ID).Count(&memberships)
	db.Model(&models.JoinRequest{}).Where("group_id = ?", group.ID).Count(&requests)
	db.Model(&models.ProjectGroup{}).Where("id = ?", group.ID).Count(&groupsLeft)
	if memberships != 0 || requests != 0 || groupsLeft != 0 {
		t.Errorf("Expected full cascade, got %d memberships, %d requests, %d groups", memberships, requests, groupsLeft)
	}
}

func TestDeleteGroupRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")

	doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Gama"}, admin)
	var group models.ProjectGroup
	db.Where("name = ?", "Grupo Gama").First(&group)
	db.Create(&models.Membership{UserID: member.ID, GroupID: group.ID, Role: models.RoleMember})

	resp := doRequest(router, "DELETE", fmt.Sprintf("/groups/%d", group.ID), nil, member)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLeaveGroupAdminForbidden(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")

	doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Delta"}, admin)

	resp := doRequest(router, "POST", "/leave-group", nil, admin)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}

	// The admin membership is untouched.
	var count int64
	db.Model(&models.Membership{}).Where("user_id = ? AND role = ?", admin.ID, models.RoleAdmin).Count(&count)
	if count != 1 {
		t.Error("Admin membership should still exist")
	}
}

func TestLeaveGroupMember(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	member := createTestUser(t, db, "member@univesp.br")

	doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Epsilon"}, admin)
	var group models.ProjectGroup
	db.Where("name = ?", "Grupo Epsilon").First(&group)
	db.Create(&models.Membership{UserID: member.ID, GroupID: group.ID, Role: models.RoleMember})

	resp := doRequest(router, "POST", "/leave-group", nil, member)
	if resp.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.Membership{}).Where("user_id = ?", member.ID).Count(&count)
	if count != 0 {
		t.Error("Membership should have been removed")
	}
}

func TestLeaveGroupNotAMember(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "loner@univesp.br")

	resp := doRequest(router, "POST", "/leave-group", nil, user)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetMine(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	admin := createTestUser(t, db, "admin@univesp.br")
	loner := createTestUser(t, db, "loner@univesp.br")

	doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Grupo Meu"}, admin)

	resp := doRequest(router, "GET", "/my-group", nil, admin)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doRequest(router, "GET", "/my-group", nil, loner)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d: %s", resp.Code, resp.Body.String())
	}
}
