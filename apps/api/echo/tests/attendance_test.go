package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	testutil "github.com/trezcool/shule/tests"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/user"
)

func Test_attendanceApi_create(t *testing.T) {
	server := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	kid := testutil.CreateUser(t, usrRepo, "kid", "kid@test.cd", "The", "Kid", user.RoleStudent, "")
	sub := testutil.CreateSubject(t, schRepo, "Maths")
	cls := testutil.CreateClass(t, schRepo, "M1", "2024", teacher, sub)
	std := testutil.CreateStudent(t, schRepo, kid, "R-001")

	teacherToken := getToken(t, server, teacher)

	newRecordBody := func(studentID, classID, date string) []byte {
		return marchallObj(t, map[string]string{
			"student":         studentID,
			"class_obj":       classID,
			"attendance_date": date,
			"attendance_time": "09:00:00",
			"status":          "Present",
			"checkin_method":  "QR_STATIC",
		})
	}

	// students cannot record attendance
	req, rec := newAuthRequest(http.MethodPost, "/attendance", getToken(t, server, kid), newRecordBody(std.ID, cls.ID, "2024-03-04"))
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	// the teacher records; recorded_by is stamped from the token
	req, rec = newAuthRequest(http.MethodPost, "/attendance", teacherToken, newRecordBody(std.ID, cls.ID, "2024-03-04"))
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var created attendance.Record
	decodeBody(t, rec, &created)
	assert.Equal(t, teacher.ID, created.RecordedByID)
	assert.Equal(t, kid.FullName(), created.StudentName)

	// a second record for the same (student, class, date) is refused
	req, rec = newAuthRequest(http.MethodPost, "/attendance", teacherToken, marchallObj(t, map[string]string{
		"student":         std.ID,
		"class_obj":       cls.ID,
		"attendance_date": "2024-03-04",
		"attendance_time": "10:15:00",
		"status":          "Late",
		"checkin_method":  "MANUAL",
	}))
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusConflict, rec)

	// and the stored record kept its original values
	req, rec = newAuthRequest(http.MethodGet, "/attendance/"+created.ID, teacherToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var stored attendance.Record
	decodeBody(t, rec, &stored)
	assert.Equal(t, "Present", stored.Status)
	assert.Equal(t, "09:00:00", stored.Time.String())

	// a different date on the same pair is fine
	req, rec = newAuthRequest(http.MethodPost, "/attendance", teacherToken, newRecordBody(std.ID, cls.ID, "2024-03-05"))
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)

	tests := []httpTest{
		{name: "unknown student", body: newRecordBody(uuid.New().String(), cls.ID, "2024-03-06"), wantCode: http.StatusBadRequest},
		{name: "unknown class", body: newRecordBody(std.ID, uuid.New().String(), "2024-03-06"), wantCode: http.StatusBadRequest},
		{
			name: "bad status",
			body: marchallObj(t, map[string]string{
				"student": std.ID, "class_obj": cls.ID, "attendance_date": "2024-03-06",
				"attendance_time": "09:00:00", "status": "Sleeping", "checkin_method": "MANUAL",
			}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/attendance", teacherToken, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_attendanceApi_studentHistory(t *testing.T) {
	server := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	kid1 := testutil.CreateUser(t, usrRepo, "kid1", "kid1@test.cd", "Kid", "One", user.RoleStudent, "")
	kid2 := testutil.CreateUser(t, usrRepo, "kid2", "kid2@test.cd", "Kid", "Two", user.RoleStudent, "")
	parent := testutil.CreateUser(t, usrRepo, "dad", "dad@test.cd", "Some", "Dad", user.RoleParent, "")

	sub := testutil.CreateSubject(t, schRepo, "Maths")
	cls := testutil.CreateClass(t, schRepo, "M1", "2024", teacher, sub)
	std1 := testutil.CreateStudent(t, schRepo, kid1, "R-001")
	std2 := testutil.CreateStudent(t, schRepo, kid2, "R-002")

	testutil.CreateRecord(t, attRepo, std1, cls, core.NewDate(2024, time.March, 4), teacher)
	testutil.CreateRecord(t, attRepo, std1, cls, core.NewDate(2024, time.March, 6), teacher)
	testutil.CreateRecord(t, attRepo, std2, cls, core.NewDate(2024, time.March, 4), teacher)

	// the student reads their own history, newest date first
	req, rec := newAuthRequest(http.MethodGet, "/attendance/student_history?student_id="+std1.ID, getToken(t, server, kid1))
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	var recs []attendance.Record
	decodeBody(t, rec, &recs)
	if assert.Len(t, recs, 2) {
		assert.Equal(t, "2024-03-06", recs[0].Date.String())
		assert.Equal(t, "2024-03-04", recs[1].Date.String())
	}

	tests := []httpTest{
		{
			name: "teachers read any history", path: "/attendance/student_history?student_id=" + std2.ID,
			token: getToken(t, server, teacher), wantCode: http.StatusOK,
		},
		{
			name: "a student cannot read another student", path: "/attendance/student_history?student_id=" + std2.ID,
			token: getToken(t, server, kid1), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "parents are refused", path: "/attendance/student_history?student_id=" + std1.ID,
			token: getToken(t, server, parent), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "student_id is required", path: "/attendance/student_history",
			token: getToken(t, server, teacher), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown student", path: "/attendance/student_history?student_id=" + uuid.New().String(),
			token: getToken(t, server, teacher), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_attendanceApi_update(t *testing.T) {
	server := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	kid := testutil.CreateUser(t, usrRepo, "kid", "kid@test.cd", "The", "Kid", user.RoleStudent, "")
	sub := testutil.CreateSubject(t, schRepo, "Maths")
	cls := testutil.CreateClass(t, schRepo, "M1", "2024", teacher, sub)
	std := testutil.CreateStudent(t, schRepo, kid, "R-001")
	rcd := testutil.CreateRecord(t, attRepo, std, cls, core.NewDate(2024, time.March, 4), teacher)

	teacherToken := getToken(t, server, teacher)

	body := marchallObj(t, map[string]string{"status": "Excused", "notes": "  doctor's note  "})
	req, rec := newAuthRequest(http.MethodPatch, "/attendance/"+rcd.ID, teacherToken, body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	var updated attendance.Record
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Excused", updated.Status)
	assert.Equal(t, "doctor's note", updated.Notes)
	assert.Equal(t, rcd.Date.String(), updated.Date.String())

	// unknown enum values are rejected before anything is stored
	for field, val := range map[string]string{"status": "Sleeping", "checkin_method": "TELEPATHY"} {
		req, rec = newAuthRequest(http.MethodPatch, "/attendance/"+rcd.ID, teacherToken, marchallObj(t, map[string]string{field: val}))
		server.ServeHTTP(rec, req)
		checkCode(t, http.StatusBadRequest, rec)

		var fldErrs map[string][]string
		decodeBody(t, rec, &fldErrs)
		if _, ok := fldErrs[field]; !ok {
			t.Errorf("expected a %s field error, got %v", field, fldErrs)
		}
	}

	req, rec = newAuthRequest(http.MethodGet, "/attendance/"+rcd.ID, teacherToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Excused", updated.Status)

	// students may read but not modify
	kidToken := getToken(t, server, kid)
	req, rec = newAuthRequest(http.MethodGet, "/attendance/"+rcd.ID, kidToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	req, rec = newAuthRequest(http.MethodPatch, "/attendance/"+rcd.ID, kidToken, body)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/attendance/"+rcd.ID, teacherToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusNoContent, rec)

	req, rec = newAuthRequest(http.MethodGet, "/attendance/"+rcd.ID, teacherToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusNotFound, rec)
}

func Test_attendanceApi_ordering(t *testing.T) {
	server := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "teach", "teach@test.cd", "Tea", "Cher", user.RoleTeacher, "")
	kid := testutil.CreateUser(t, usrRepo, "kid", "kid@test.cd", "The", "Kid", user.RoleStudent, "")
	sub := testutil.CreateSubject(t, schRepo, "Maths")
	cls := testutil.CreateClass(t, schRepo, "M1", "2024", teacher, sub)
	std := testutil.CreateStudent(t, schRepo, kid, "R-001")

	teacherToken := getToken(t, server, teacher)

	mkRecord := func(date, clock string) {
		body := marchallObj(t, map[string]string{
			"student":         std.ID,
			"class_obj":       cls.ID,
			"attendance_date": date,
			"attendance_time": clock,
			"status":          attendance.StatusPresent,
			"checkin_method":  attendance.CheckinManual,
		})
		req, rec := newAuthRequest(http.MethodPost, "/attendance", teacherToken, body)
		server.ServeHTTP(rec, req)
		checkCode(t, http.StatusCreated, rec)
	}
	mkRecord("2024-03-04", "10:30:00")
	mkRecord("2024-03-05", "08:15:00")
	mkRecord("2024-03-06", "09:00:00")

	req, rec := newAuthRequest(http.MethodGet, "/attendance?ordering=attendance_time", teacherToken)
	server.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	var recs []attendance.Record
	decodeBody(t, rec, &recs)
	times := make([]string, 0, len(recs))
	for _, r := range recs {
		times = append(times, r.Time.String())
	}
	assert.Equal(t, []string{"08:15:00", "09:00:00", "10:30:00"}, times)
}
