package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	testutil "github.com/trezcool/shule/tests"

	"github.com/trezcool/shule/core/announce"
	"github.com/trezcool/shule/core/user"
)

func Test_announcementApi_audienceProjection(t *testing.T) {
	server := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "Ad", "Min", user.RoleAdmin, "")
	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	kid := testutil.CreateUser(t, usrRepo, "kid", "kid@test.cd", "The", "Kid", user.RoleStudent, "")
	parent := testutil.CreateUser(t, usrRepo, "dad", "dad@test.cd", "Some", "Dad", user.RoleParent, "")

	now := time.Now().UTC()
	all := testutil.CreateAnnouncement(t, annRepo, "Holiday next week", announce.AudienceAll, admin, now)
	forStudents := testutil.CreateAnnouncement(t, annRepo, "Exam schedule", announce.AudienceStudents, admin, now.Add(time.Second))
	forTeachers := testutil.CreateAnnouncement(t, annRepo, "Staff meeting", announce.AudienceTeachers, admin, now.Add(2*time.Second))
	forParents := testutil.CreateAnnouncement(t, annRepo, "PTA evening", announce.AudienceParents, admin, now.Add(3*time.Second))

	// newest first
	tests := []httpTest{
		{
			name: "Admins see everything", token: getToken(t, server, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, forParents, forTeachers, forStudents, all),
		},
		{
			name: "so do Teachers", token: getToken(t, server, teacher),
			wantCode: http.StatusOK, wantData: marchallList(t, forParents, forTeachers, forStudents, all),
		},
		{
			name: "Students see All and Students", token: getToken(t, server, kid),
			wantCode: http.StatusOK, wantData: marchallList(t, forStudents, all),
		},
		{
			name: "Parents see All and Parents", token: getToken(t, server, parent),
			wantCode: http.StatusOK, wantData: marchallList(t, forParents, all),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/announcements", tt.token)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// a hidden announcement reads as not found, never as forbidden
	req, rec := newAuthRequest(http.MethodGet, "/announcements/"+forTeachers.ID, getToken(t, server, kid))
	server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)

	// while a visible one resolves
	req, rec = newAuthRequest(http.MethodGet, "/announcements/"+forStudents.ID, getToken(t, server, kid))
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
}

func Test_announcementApi_create(t *testing.T) {
	server := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	kid := testutil.CreateUser(t, usrRepo, "kid", "kid@test.cd", "The", "Kid", user.RoleStudent, "")

	body := marchallObj(t, map[string]string{
		"title":    "Sports day",
		"message":  "Bring your kit.",
		"type":     announce.TypeEvent,
		"audience": announce.AudienceAll,
	})

	// students cannot post to the board
	req, rec := newAuthRequest(http.MethodPost, "/announcements", getToken(t, server, kid), body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	// teachers can; the author is stamped from the token
	req, rec = newAuthRequest(http.MethodPost, "/announcements", getToken(t, server, teacher), body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)

	var created announce.Announcement
	decodeBody(t, rec, &created)
	assert.Equal(t, teacher.ID, created.CreatedByID)
	assert.Equal(t, teacher.FullName(), created.CreatedByName)

	// bad audience
	body = marchallObj(t, map[string]string{
		"title":    "x",
		"message":  "y",
		"type":     announce.TypeGeneral,
		"audience": "Everybody",
	})
	req, rec = newAuthRequest(http.MethodPost, "/announcements", getToken(t, server, teacher), body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusBadRequest, rec)
}

func Test_announcementApi_update(t *testing.T) {
	server := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "Ad", "Min", user.RoleAdmin, "")
	ann := testutil.CreateAnnouncement(t, annRepo, "Old title", announce.AudienceAll, admin)

	adminToken := getToken(t, server, admin)

	body := marchallObj(t, map[string]string{"title": "New title", "audience": announce.AudienceTeachers})
	req, rec := newAuthRequest(http.MethodPatch, "/announcements/"+ann.ID, adminToken, body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	var updated announce.Announcement
	decodeBody(t, rec, &updated)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, announce.AudienceTeachers, updated.Audience)
	assert.Equal(t, ann.Message, updated.Message)

	// unknown enum values are rejected before anything is stored
	for field, val := range map[string]string{"type": "Gossip", "audience": "Visitors"} {
		req, rec = newAuthRequest(http.MethodPatch, "/announcements/"+ann.ID, adminToken, marchallObj(t, map[string]string{field: val}))
		server.ServeHTTP(rec, req)
		checkCode(t, http.StatusBadRequest, rec)

		var fldErrs map[string][]string
		decodeBody(t, rec, &fldErrs)
		if _, ok := fldErrs[field]; !ok {
			t.Errorf("expected a %s field error, got %v", field, fldErrs)
		}
	}

	req, rec = newAuthRequest(http.MethodGet, "/announcements/"+ann.ID, adminToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	decodeBody(t, rec, &updated)
	assert.Equal(t, announce.AudienceTeachers, updated.Audience)

	req, rec = newAuthRequest(http.MethodDelete, "/announcements/"+ann.ID, adminToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusNoContent, rec)

	req, rec = newAuthRequest(http.MethodGet, "/announcements/"+ann.ID, adminToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusNotFound, rec)
}
