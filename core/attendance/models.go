package attendance

import (
	"github.com/trezcool/classrecord/core"
)

// ClassCollection holds one document per class; each class keeps its students
// in a sub-collection named after its class code.
const ClassCollection = "subjects"

// stored field names
const (
	FieldClassCode        = "classCode"
	FieldEmployeeID       = "employeeId"
	FieldSubjectName      = "subjectName"
	FieldPeriod           = "period"
	FieldTotalAbsences    = "totalAbsences"
	FieldTotalDaysPresent = "totalDaysPresent"

	FieldDocumentID      = "documentId"
	FieldName            = "name"
	FieldGrade           = "grade"
	FieldAttendance      = "attendance"
	FieldFinalAttendance = "finalAttendance"
)

// ClassTotals are entered by the instructor and never derived from student vectors.
type ClassTotals struct {
	TotalAbsences    int `json:"total_absences" doc:"totalAbsences"`
	TotalDaysPresent int `json:"total_days_present" doc:"totalDaysPresent"`
}

type Class struct {
	ID          string      `json:"id" doc:"-"`
	ClassCode   string      `json:"class_code" doc:"classCode"`
	SubjectName string      `json:"subject_name" doc:"subjectName"`
	EmployeeID  string      `json:"employee_id" doc:"employeeId"`
	Period      string      `json:"period" doc:"period"`
	Totals      ClassTotals `json:"totals" doc:",squash"`
}

// StudentsCollection is the path of the class' students sub-collection.
func (c Class) StudentsCollection() string {
	return core.SubCollection(ClassCollection, c.ID, c.ClassCode)
}

func (c Class) data() core.Data {
	return core.Data{
		FieldClassCode:        c.ClassCode,
		FieldSubjectName:      c.SubjectName,
		FieldEmployeeID:       c.EmployeeID,
		FieldPeriod:           c.Period,
		FieldTotalAbsences:    c.Totals.TotalAbsences,
		FieldTotalDaysPresent: c.Totals.TotalDaysPresent,
	}
}

type Student struct {
	ID              string                    `json:"id" doc:"-"`
	Name            string                    `json:"name" doc:"name"`
	Grade           string                    `json:"grade" doc:"grade"`
	ClassCode       string                    `json:"class_code" doc:"classCode"`
	Attendance      Vector                    `json:"attendance" doc:"attendance"`
	FinalAttendance map[string]ArchivedVector `json:"final_attendance" doc:"finalAttendance"`
}

func (s Student) data() core.Data {
	final := make(map[string]interface{}, len(s.FinalAttendance))
	for period, vec := range s.FinalAttendance {
		final[period] = vec.Values()
	}
	return core.Data{
		FieldDocumentID:      s.ID,
		FieldName:            s.Name,
		FieldGrade:           s.Grade,
		FieldClassCode:       s.ClassCode,
		FieldAttendance:      s.Attendance.Values(),
		FieldFinalAttendance: final,
	}
}

func decodeClass(doc core.Document) (Class, error) {
	var cls Class
	if err := core.DecodeDocument(doc, &cls); err != nil {
		return Class{}, err
	}
	cls.ID = doc.ID
	return cls, nil
}

func decodeStudent(doc core.Document) (Student, error) {
	var st Student
	if err := core.DecodeDocument(doc, &st, vectorDecodeHook); err != nil {
		return Student{}, err
	}
	st.ID = doc.ID
	if st.FinalAttendance == nil {
		st.FinalAttendance = make(map[string]ArchivedVector)
	}
	return st, nil
}
