package tests

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	testutil "github.com/trezcool/shule/tests"

	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

func Test_subjectApi(t *testing.T) {
	server := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "Ad", "Min", user.RoleAdmin, "")
	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	sub := testutil.CreateSubject(t, schRepo, "Biology")

	adminToken := getToken(t, server, admin)
	teacherToken := getToken(t, server, teacher)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/subjects", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "any authenticated role reads", method: http.MethodGet, path: "/subjects", token: teacherToken,
			wantCode: http.StatusOK, wantData: marchallList(t, sub),
		},
		{
			name: "writes are Admin only", method: http.MethodPost, path: "/subjects", token: teacherToken,
			body: marchallObj(t, map[string]string{"name": "Chemistry"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Admin creates", method: http.MethodPost, path: "/subjects", token: adminToken,
			body: marchallObj(t, map[string]string{"name": "Chemistry"}), wantCode: http.StatusCreated,
		},
		{
			name: "name required", method: http.MethodPost, path: "/subjects", token: adminToken,
			body: marchallObj(t, map[string]string{"name": "  "}), wantCode: http.StatusBadRequest,
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/subjects/" + sub.ID, token: teacherToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, sub),
		},
		{
			name: "retrieve unknown", method: http.MethodGet, path: "/subjects/" + uuid.New().String(), token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classApi_create(t *testing.T) {
	server := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "Ad", "Min", user.RoleAdmin, "")
	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	parent := testutil.CreateUser(t, usrRepo, "dad", "dad@test.cd", "Some", "Dad", user.RoleParent, "")
	sub := testutil.CreateSubject(t, schRepo, "Maths")

	adminToken := getToken(t, server, admin)

	newClassBody := func(teacherID, subjectID, start, end string) []byte {
		return marchallObj(t, map[string]interface{}{
			"name":                 "M1",
			"academic_year":        "2024",
			"scheduled_start_time": start,
			"scheduled_end_time":   end,
			"days_of_week":         "monday, Wednesday",
			"location":             "Room 1",
			"teacher":              teacherID,
			"subject":              subjectID,
		})
	}

	tests := []httpTest{
		{
			name: "valid", body: newClassBody(teacher.ID, sub.ID, "08:00:00", "09:30:00"),
			wantCode: http.StatusCreated,
		},
		{
			name: "teacher must hold the Teacher role", body: newClassBody(parent.ID, sub.ID, "08:00:00", "09:30:00"),
			wantCode: http.StatusConflict,
		},
		{
			name: "unknown teacher", body: newClassBody(uuid.New().String(), sub.ID, "08:00:00", "09:30:00"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown subject", body: newClassBody(teacher.ID, uuid.New().String(), "08:00:00", "09:30:00"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "end must follow start", body: newClassBody(teacher.ID, sub.ID, "09:30:00", "08:00:00"),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/classes", adminToken, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code == http.StatusCreated {
				var cls school.Class
				decodeBody(t, rec, &cls)
				assert.Equal(t, teacher.FullName(), cls.TeacherName)
				assert.Equal(t, sub.Name, cls.SubjectName)
				assert.Equal(t, school.DaysOfWeek{"Monday", "Wednesday"}, cls.DaysOfWeek)
			}
		})
	}
}

func Test_classApi_enrollStudents(t *testing.T) {
	server := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "Ad", "Min", user.RoleAdmin, "")
	owner := testutil.CreateUser(t, usrRepo, "owner", "owner@test.cd", "Own", "Er", user.RoleTeacher, "")
	other := testutil.CreateUser(t, usrRepo, "other", "other@test.cd", "Oth", "Er", user.RoleTeacher, "")
	kid1 := testutil.CreateUser(t, usrRepo, "kid1", "kid1@test.cd", "Kid", "One", user.RoleStudent, "")
	kid2 := testutil.CreateUser(t, usrRepo, "kid2", "kid2@test.cd", "Kid", "Two", user.RoleStudent, "")

	sub := testutil.CreateSubject(t, schRepo, "Maths")
	cls := testutil.CreateClass(t, schRepo, "M1", "2024", owner, sub)
	std1 := testutil.CreateStudent(t, schRepo, kid1, "R-001")
	std2 := testutil.CreateStudent(t, schRepo, kid2, "R-002")

	path := "/classes/" + cls.ID + "/enroll_students"
	body := marchallObj(t, map[string][]string{"student_ids": {std1.ID, std2.ID, std1.ID}}) // dupes are fine

	// a teacher who does not own the class is refused
	req, rec := newAuthRequest(http.MethodPost, path, getToken(t, server, other), body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	// the owning teacher enrolls
	req, rec = newAuthRequest(http.MethodPost, path, getToken(t, server, owner), body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	// enrolling is a set-union: repeating the call changes nothing
	req, rec = newAuthRequest(http.MethodPost, path, getToken(t, server, admin), body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	req, rec = newAuthRequest(http.MethodGet, "/students/"+std1.ID, getToken(t, server, admin))
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var std school.Student
	decodeBody(t, rec, &std)
	assert.Equal(t, []string{cls.ID}, std.ClassIDs)

	// one unknown id fails the whole batch
	body = marchallObj(t, map[string][]string{"student_ids": {std2.ID, uuid.New().String()}})
	req, rec = newAuthRequest(http.MethodPost, path, getToken(t, server, admin), body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusBadRequest, rec)

	var fldErrs map[string][]string
	decodeBody(t, rec, &fldErrs)
	if _, ok := fldErrs["student_ids"]; !ok {
		t.Errorf("expected a student_ids field error, got %v", fldErrs)
	}

	// an empty batch is invalid
	body = marchallObj(t, map[string][]string{"student_ids": {}})
	req, rec = newAuthRequest(http.MethodPost, path, getToken(t, server, admin), body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusBadRequest, rec)
}

func Test_studentApi(t *testing.T) {
	server := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "Ad", "Min", user.RoleAdmin, "")
	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	kid1 := testutil.CreateUser(t, usrRepo, "kid1", "kid1@test.cd", "Kid", "One", user.RoleStudent, "")
	kid2 := testutil.CreateUser(t, usrRepo, "kid2", "kid2@test.cd", "Kid", "Two", user.RoleStudent, "")
	std1 := testutil.CreateStudent(t, schRepo, kid1, "R-001")

	adminToken := getToken(t, server, admin)

	// duplicate profile for the same person is a conflict
	body := marchallObj(t, map[string]string{"roll_number": "R-009", "user": kid1.ID})
	req, rec := newAuthRequest(http.MethodPost, "/students", adminToken, body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusConflict, rec)

	// so is a taken roll number
	body = marchallObj(t, map[string]string{"roll_number": "r-001", "user": kid2.ID})
	req, rec = newAuthRequest(http.MethodPost, "/students", adminToken, body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusConflict, rec)

	// the linked person must hold the Student role
	body = marchallObj(t, map[string]string{"roll_number": "R-002", "user": teacher.ID})
	req, rec = newAuthRequest(http.MethodPost, "/students", adminToken, body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusConflict, rec)

	body = marchallObj(t, map[string]string{"roll_number": "R-002", "user": kid2.ID})
	req, rec = newAuthRequest(http.MethodPost, "/students", adminToken, body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var std2 school.Student
	decodeBody(t, rec, &std2)

	tests := []httpTest{
		{
			name: "students cannot list", method: http.MethodGet, path: "/students", token: getToken(t, server, kid1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "teachers list", method: http.MethodGet, path: "/students", token: getToken(t, server, teacher), wantCode: http.StatusOK},
		{
			name: "a student reads their own profile", method: http.MethodGet, path: "/students/" + std1.ID, token: getToken(t, server, kid1),
			wantCode: http.StatusOK,
		},
		{
			name: "but not somebody else's", method: http.MethodGet, path: "/students/" + std2.ID, token: getToken(t, server, kid1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classApi_ordering(t *testing.T) {
	server := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "admin", "admin@test.cd", "Ad", "Min", user.RoleAdmin, "")
	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	sub := testutil.CreateSubject(t, schRepo, "Maths")

	adminToken := getToken(t, server, admin)

	mkClass := func(name, end, location string) {
		body := marchallObj(t, map[string]interface{}{
			"name":                 name,
			"academic_year":        "2024",
			"scheduled_start_time": "08:00:00",
			"scheduled_end_time":   end,
			"days_of_week":         "Monday",
			"location":             location,
			"teacher":              teacher.ID,
			"subject":              sub.ID,
		})
		req, rec := newAuthRequest(http.MethodPost, "/classes", adminToken, body)
		server.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)
	}
	mkClass("M1", "11:00:00", "Room B")
	mkClass("M2", "09:00:00", "Room C")
	mkClass("M3", "10:00:00", "Room A")

	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "by end time", path: "/classes?ordering=scheduled_end_time", want: []string{"M2", "M3", "M1"}},
		{name: "by location, descending", path: "/classes?ordering=-location", want: []string{"M2", "M1", "M3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, adminToken)
			server.ServeHTTP(rec, req)
			checkCode(t, http.StatusOK, rec)

			var classes []school.Class
			decodeBody(t, rec, &classes)
			names := make([]string, 0, len(classes))
			for _, cls := range classes {
				names = append(names, cls.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
