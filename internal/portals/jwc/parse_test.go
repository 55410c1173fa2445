package jwc

import (
	_ "embed"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"csuassist/internal/components/chrono"
	"csuassist/internal/failure"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/grades.html
var gradesFixture []byte

//go:embed testdata/schedule.html
var scheduleFixture []byte

//go:embed testdata/levelexams.html
var levelExamsFixture []byte

//go:embed testdata/profile.html
var profileFixture []byte

//go:embed testdata/minor_registrations.html
var minorRegistrationsFixture []byte

//go:embed testdata/minor_payments.html
var minorPaymentsFixture []byte

//go:embed testdata/plan.html
var planFixture []byte

func TestParseGrades(t *testing.T) {
	grades, err := ParseGrades(gradesFixture)
	require.NoError(t, err)
	require.Len(t, grades, 2)

	expected := Grade{
		GottenTerm:     "2024-2025-1",
		ClassName:      "DataStructures",
		FinalGrade:     "92",
		Credit:         "3",
		ClassAttribute: "Required",
		ClassNature:    "Major",
	}
	if diff := cmp.Diff(expected, grades[1]); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "优", grades[0].FinalGrade)
}

func TestParseGradesMissingMarker(t *testing.T) {
	_, err := ParseGrades([]byte(`<html><body>统一身份认证</body></html>`))
	var missing *failure.PageMarkerMissing
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "grades", missing.Operation)
}

func TestParseGradesEmptyFields(t *testing.T) {
	body := strings.Replace(string(gradesFixture), "<td>92</td>", "<td> </td>", 1)
	empty := failure.NewEmptyFields("grades")
	grades, err := parseGrades([]byte(body), empty)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.Equal(t, "", grades[1].FinalGrade)
	require.Equal(t, []failure.EmptyField{
		{Operation: "grades", Field: "FinalGrade", Row: 2},
	}, empty.Fields)
}

func TestParseSchedule(t *testing.T) {
	schedule, err := ParseSchedule(scheduleFixture)
	require.NoError(t, err)

	expected := [][]ClassEntry{
		{{ClassName: "数据结构", Teacher: "张三", Weeks: "1-16(周)", Place: "A101", TimeInWeek: "1", TimeInDay: "第一大节"}},
		{
			{ClassName: "数据结构", Teacher: "张三", Weeks: "1-8(周)", Place: "A101", TimeInWeek: "2", TimeInDay: "第一大节"},
			{ClassName: "操作系统", Teacher: "李四", Weeks: "9-16(周)", Place: "B202", TimeInWeek: "2", TimeInDay: "第一大节"},
		},
		{},
		{},
		{{ClassName: "编译原理", Teacher: "赵六", Weeks: "2-17(周)", Place: "C303", TimeInWeek: "1", TimeInDay: "第二大节"}},
		{{ClassName: "软件工程", Teacher: "钱七", Weeks: "3-10(周)", Place: "D404", TimeInWeek: "2", TimeInDay: "第二大节"}},
		{},
		{},
	}
	if diff := cmp.Diff(expected, schedule.Cells); diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, "2024年09月02", schedule.StartWeekDay)
	require.True(t, schedule.StartDate.Equal(
		time.Date(2024, time.September, 2, 0, 0, 0, 0, chrono.CampusLocation()),
	))
}

func TestParseScheduleLabelCounts(t *testing.T) {
	font := `<font title="老师">T</font><br/><font title="周次(节次)">W</font><br/><font title="教室">P</font><br/>`
	untitled := `<font>a</font>`

	testCases := []struct {
		name     string
		contents string
		entries  int
	}{
		{name: "three labels", contents: "A<br/>" + font, entries: 1},
		{name: "six labels", contents: "A<br/>" + font + "----<br/>B<br/>" + font, entries: 2},
		{name: "two labels", contents: untitled + untitled, entries: 0},
		{name: "four untitled labels", contents: untitled + untitled + untitled + untitled, entries: 0},
		{name: "nine labels", contents: font + font + font, entries: 0},
		{name: "no labels", contents: "", entries: 0},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			body := `<table id="kbtable"><tr><th>第一大节</th><td><div class="kbcontent">` +
				test.contents + `</div></td></tr></table>`
			schedule, err := ParseSchedule([]byte(body))
			require.NoError(t, err)
			require.Len(t, schedule.Cells, 1)
			require.Len(t, schedule.Cells[0], test.entries)
			for _, entry := range schedule.Cells[0] {
				require.Equal(t, "1", entry.TimeInWeek)
				require.Equal(t, "第一大节", entry.TimeInDay)
			}
			require.Equal(t, "", schedule.StartWeekDay)
			require.True(t, schedule.StartDate.IsZero())
		})
	}
}

func TestParseScheduleMissingTable(t *testing.T) {
	_, err := ParseSchedule([]byte(`<html><body>登录</body></html>`))
	var missing *failure.PageMarkerMissing
	require.True(t, errors.As(err, &missing))
}

func TestParseLevelExams(t *testing.T) {
	exams, err := ParseLevelExams(levelExamsFixture)
	require.NoError(t, err)

	expected := []LevelExam{
		{
			Course:       "全国大学英语四级",
			WrittenScore: "520",
			TotalScore:   "520",
			ExamDate:     "2023-12-16",
		},
		{
			Course:        "计算机二级",
			WrittenLevel:  "合格",
			ComputerLevel: "良好",
			TotalLevel:    "良好",
			ExamDate:      "2024-03-23",
		},
	}
	if diff := cmp.Diff(expected, exams); diff != "" {
		t.Fatal(diff)
	}

	_, err = ParseLevelExams([]byte(`<table id="dataList"></table>`))
	var missing *failure.PageMarkerMissing
	require.True(t, errors.As(err, &missing))
}

func TestParseProfile(t *testing.T) {
	profile, err := ParseProfile(profileFixture)
	require.NoError(t, err)

	expected := Profile{
		Fields: []ProfileField{
			{Label: "姓名", Value: "张三"},
			{Label: "性别", Value: "男"},
			{Label: "学号", Value: "8208210000"},
			{Label: "院系", Value: "计算机学院"},
			{Label: "专业", Value: "计算机科学与技术"},
			{Label: "班级", Value: ""},
		},
		Education: []ProfileRow{
			{"2018.09-2021.06", "长沙市第一中学", "李老师"},
		},
		Family: []ProfileRow{
			{"张大", "父亲", "某公司"},
			{"王二", "母亲", "某学校"},
		},
		StatusChanges: []ProfileRow{},
	}
	if diff := cmp.Diff(expected, profile); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "8208210000", profile.Field("学号："))
	require.Equal(t, "", profile.Field("民族"))

	_, err = ParseProfile([]byte(`<table id="other"></table>`))
	var missing *failure.PageMarkerMissing
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "#xjkpTable", missing.Marker)
}

func TestParseMinorRegistrations(t *testing.T) {
	pageUrl, err := url.Parse("http://jwc.test/jsxsd/fxgl/fxbm_list")
	require.NoError(t, err)

	registrations, err := ParseMinorRegistrations(pageUrl, minorRegistrationsFixture)
	require.NoError(t, err)

	expected := []MinorRegistration{
		{Index: "1", Major: "金融学", Department: "商学院", Type: "辅修", Status: "已录取", PlanUrl: "http://jwc.test/jsxsd/fxgl/fxpyfa?id=1"},
		{Index: "2", Major: "法学", Department: "法学院", Type: "辅修", Status: "未录取", PlanUrl: "http://jwc.test/jsxsd/fxgl/fxpyfa?id=2"},
		{Index: "3", Major: "金融学", Department: "商学院", Type: "双学位", Status: "已录取", PlanUrl: "http://jwc.test/jsxsd/fxgl/fxpyfa?id=1#top"},
		{Index: "4", Major: "英语", Department: "外国语学院", Type: "辅修", Status: "已退出"},
	}
	if diff := cmp.Diff(expected, registrations); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, planKey(registrations[0].PlanUrl), planKey(registrations[2].PlanUrl))
}

func TestParseMinorPayments(t *testing.T) {
	payments, err := ParseMinorPayments(minorPaymentsFixture)
	require.NoError(t, err)

	expected := []MinorPayment{{
		Index:      "1",
		CourseId:   "FX001",
		CourseName: "金融学原理",
		Department: "商学院",
		Class:      "辅修1班",
		Place:      "A201",
		Time:       "周六1-2节",
		Teacher:    "孙八",
		Credit:     "3",
		Hours:      "48",
		Fee:        "300",
		Paid:       "是",
	}}
	if diff := cmp.Diff(expected, payments); diff != "" {
		t.Fatal(diff)
	}
}

func TestParsePlan(t *testing.T) {
	courses, err := ParsePlan(planFixture)
	require.NoError(t, err)
	require.Len(t, courses, 2)

	expected := PlanCourse{
		Index:        "2",
		Term:         "2024-2025-2",
		CourseId:     "CS102",
		CourseName:   "离散数学",
		Credit:       "3",
		Hours:        "48",
		ExamType:     "考查",
		CourseAttr:   "必修",
		IsExam:       "否",
		AdjustReason: "培养方案调整",
	}
	if diff := cmp.Diff(expected, courses[1]); diff != "" {
		t.Fatal(diff)
	}

	_, err = ParsePlan([]byte(`<html></html>`))
	var missing *failure.PageMarkerMissing
	require.True(t, errors.As(err, &missing))
}

func TestParsingIsIdempotent(t *testing.T) {
	testCases := []struct {
		name  string
		parse func() (any, error)
	}{
		{name: "grades", parse: func() (any, error) { return ParseGrades(gradesFixture) }},
		{name: "schedule", parse: func() (any, error) { return ParseSchedule(scheduleFixture) }},
		{name: "level exams", parse: func() (any, error) { return ParseLevelExams(levelExamsFixture) }},
		{name: "profile", parse: func() (any, error) { return ParseProfile(profileFixture) }},
		{name: "plan", parse: func() (any, error) { return ParsePlan(planFixture) }},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			first, err := test.parse()
			require.NoError(t, err)
			second, err := test.parse()
			require.NoError(t, err)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestRenderSummary(t *testing.T) {
	grades := []Grade{
		{GottenTerm: "2023-2024-2", ClassName: "Calculus", FinalGrade: "优", Credit: "5"},
		{GottenTerm: "2024-2025-1", ClassName: "DataStructures", FinalGrade: "92", Credit: "3"},
		{GottenTerm: "2024-2025-1", ClassName: "Networks", FinalGrade: "80", Credit: "1"},
	}
	ranks := []Rank{{Term: "2024-2025-1", TotalScore: "89", ClassRank: "3", AverScore: "89"}}

	out := RenderSummary(grades, ranks)
	require.Equal(t, out, RenderSummary(grades, ranks))

	latest := strings.Index(out, "## 2024-2025-1")
	earlier := strings.Index(out, "## 2023-2024-2")
	require.NotEqual(t, -1, latest)
	require.NotEqual(t, -1, earlier)
	require.Less(t, latest, earlier)

	// (92*3 + 80*1) / 4
	require.Contains(t, out, "学分合计：4，加权平均分：89.00")
	require.Contains(t, out, "学分合计：5，加权平均分：-")
	require.Contains(t, out, "学分合计：9，加权平均分：89.00")
	require.Contains(t, out, "## 排名")
	require.Contains(t, out, "| DataStructures | 92 | 3 |")
}
