package main

import (
	"github.com/shengyanli1982/mserial"
)

type Priority int8

const (
	PriorityLow    Priority = -1
	PriorityNormal Priority = 0
	PriorityHigh   Priority = 1
)

var priorityCodec = mserial.NewEnum[Priority]("Priority",
	mserial.EnumValue[Priority]{Name: "low", Value: PriorityLow},
	mserial.EnumValue[Priority]{Name: "normal", Value: PriorityNormal},
	mserial.EnumValue[Priority]{Name: "high", Value: PriorityHigh},
)

// Task 是链表节点，next 为 nil 时链表结束
type Task struct {
	ID    uint32
	Title string
	Next  *Task
}

// Queue 是示例容器的负载
type Queue struct {
	Name     string
	Priority Priority
	Load     mserial.Float16
	Labels   map[string]uint16
	Head     *Task
}

var taskCodec = mserial.NewStruct[Task]("Task")

var queueCodec = mserial.NewStruct[Queue]("Queue",
	mserial.Field("name", func(q *Queue) *string { return &q.Name }, mserial.String),
	mserial.Field("priority", func(q *Queue) *Priority { return &q.Priority }, priorityCodec),
	mserial.Field("load", func(q *Queue) *mserial.Float16 { return &q.Load }, mserial.Float16Codec),
	mserial.Field("labels", func(q *Queue) *map[string]uint16 { return &q.Labels }, mserial.Map(mserial.String, mserial.Uint16)),
	mserial.Field("head", func(q *Queue) **Task { return &q.Head }, mserial.Pointer[Task](taskCodec)),
)

func init() {
	taskCodec.Define(
		mserial.Field("id", func(t *Task) *uint32 { return &t.ID }, mserial.Uint32),
		mserial.Field("title", func(t *Task) *string { return &t.Title }, mserial.String),
		mserial.Field("next", func(t *Task) **Task { return &t.Next }, mserial.Pointer[Task](taskCodec)),
	)
}

func sampleQueue() Queue {
	return Queue{
		Name:     "builds",
		Priority: PriorityHigh,
		Load:     0.75,
		Labels:   map[string]uint16{"arch": 64},
		Head: &Task{ID: 1, Title: "fetch", Next: &Task{ID: 2, Title: "compile", Next: &Task{
			ID: 3, Title: "test",
		}}},
	}
}
